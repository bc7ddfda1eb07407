package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/whisper-im/whisper/internal/auth"
	"github.com/whisper-im/whisper/internal/logger"
	"github.com/whisper-im/whisper/internal/models"
	"github.com/whisper-im/whisper/internal/store"
)

type AuthHandler struct {
	Store    store.Store
	Verifier auth.Verifier
}

type syncRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Sync upserts the caller's user record from the verified token plus the
// submitted profile. The client calls this once after sign-in, before
// opening the socket; without it FindUserByExternalID has nothing to find.
func (h *AuthHandler) Sync(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	externalID, err := h.Verifier.VerifyToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := &models.User{
		ExternalID: externalID,
		Name:       req.Name,
		Email:      req.Email,
		Avatar:     req.Avatar,
	}
	if err := h.Store.CreateUser(r.Context(), user); err != nil {
		logger.ErrorF("User sync failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to sync user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
