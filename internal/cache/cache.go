package cache

import (
	"context"
	"time"
)

// Receipt records the last successful invitation delivery for an attendee.
type Receipt struct {
	RemoteMessageID string    `json:"remote_message_id"`
	SentAt          time.Time `json:"sent_at"`
}

type InvitationCache interface {
	StoreSent(ctx context.Context, attendeeID int64, remoteMessageID string, sentAt time.Time) error
	LastSent(ctx context.Context, attendeeID int64) (*Receipt, error)
}

// NopCache is used when Redis is not configured.
type NopCache struct{}

func (NopCache) StoreSent(context.Context, int64, string, time.Time) error { return nil }

func (NopCache) LastSent(context.Context, int64) (*Receipt, error) { return nil, nil }
