package core

import (
	"context"
	"time"
)

// SessionStore remembers revoked session ids until their token would have expired anyway.
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
