package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found or expired")

// Store maps opaque session tokens to admin ids. Entries expire after the
// store's configured TTL.
type Store interface {
	Create(ctx context.Context, token string, adminID int64) error
	Get(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}
