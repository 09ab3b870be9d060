package model

import (
	"context"
	"time"
)

type AdminUser struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type adminCtxKey struct{}

// WithAdmin stores the authenticated admin for the lifetime of one request.
func WithAdmin(ctx context.Context, admin *AdminUser) context.Context {
	return context.WithValue(ctx, adminCtxKey{}, admin)
}

func AdminFromContext(ctx context.Context) (*AdminUser, bool) {
	admin, ok := ctx.Value(adminCtxKey{}).(*AdminUser)
	return admin, ok && admin != nil
}
