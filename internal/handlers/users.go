package handlers

import (
	"net/http"

	"github.com/whisper-im/whisper/internal/logger"
	"github.com/whisper-im/whisper/internal/middleware"
	"github.com/whisper-im/whisper/internal/store"
)

type UserHandler struct {
	Store store.Store
}

// GetUsers lists every user except the caller, for the new-chat screen.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	users, err := h.Store.ListUsers(r.Context(), userID)
	if err != nil {
		logger.ErrorF("User list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
