package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whisper-im/whisper/internal/logger"
	"github.com/whisper-im/whisper/internal/middleware"
	"github.com/whisper-im/whisper/internal/store"
)

type ChatHandler struct {
	Store store.Store
}

type createChatRequest struct {
	OtherUserID string `json:"otherUserId"`
}

// CreateChat returns the chat between the caller and the given user,
// creating it if it does not exist yet.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OtherUserID == "" || req.OtherUserID == userID {
		writeError(w, http.StatusBadRequest, "invalid participant")
		return
	}

	if _, err := h.Store.FindUserByID(r.Context(), req.OtherUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.ErrorF("User lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	chat, err := h.Store.CreateChat(r.Context(), userID, req.OtherUserID)
	if err != nil {
		logger.ErrorF("Chat create failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

// GetChats lists the caller's chats, most recently active first.
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	chats, err := h.Store.ListUserChats(r.Context(), userID)
	if err != nil {
		logger.ErrorF("Chat list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// GetChatMessages lists a chat's messages. The participant-filtered lookup
// is the authorization check: non-participants get a 403 regardless of
// whether the chat exists.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	chatID := mux.Vars(r)["id"]

	if _, err := h.Store.FindChatForParticipant(r.Context(), chatID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		logger.ErrorF("Chat lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	messages, err := h.Store.ListChatMessages(r.Context(), chatID)
	if err != nil {
		logger.ErrorF("Message list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
