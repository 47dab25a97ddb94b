package port

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore resolves a bearer token to the buyer it belongs to.
type SessionStore interface {
	// BuyerID returns the buyer owning the session token, or
	// ErrSessionNotFound if the token is unknown or expired.
	BuyerID(ctx context.Context, token string) (string, error)
}
