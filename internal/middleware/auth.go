package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/whisper-im/whisper/internal/auth"
	"github.com/whisper-im/whisper/internal/store"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Auth resolves the bearer token to an internal user and stores the user id
// in the request context. Requests without a valid token are rejected.
func Auth(verifier auth.Verifier, st store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w)
				return
			}

			externalID, err := verifier.VerifyToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := st.FindUserByExternalID(r.Context(), externalID)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

// UserID extracts the authenticated user id from the request context.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}
