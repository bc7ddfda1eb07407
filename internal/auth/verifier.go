// Package auth resolves bearer tokens to external identities. The websocket
// handshake and the HTTP middleware both consume the Verifier interface; the
// concrete implementation validates signed JWTs.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken is returned when the token is malformed, unsigned by
	// us, or carries no subject.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Verifier validates an opaque bearer token and resolves it to a stable
// external identity.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (externalID string, err error)
}
