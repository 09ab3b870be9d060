package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	InvitationSent    = "checkin.invitation.sent"
	InvitationFailed  = "checkin.invitation.failed"
	AttendeeAttended  = "checkin.attendee.attended"
	AttendeesImported = "checkin.attendees.imported"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

type InvitationEvent struct {
	EventID         int64     `json:"event_id"`
	AttendeeID      int64     `json:"attendee_id"`
	RemoteMessageID string    `json:"remote_message_id,omitempty"`
	Error           string    `json:"error,omitempty"`
	At              time.Time `json:"at"`
}

type AttendedEvent struct {
	EventID    int64     `json:"event_id"`
	AttendeeID int64     `json:"attendee_id"`
	AdminID    int64     `json:"admin_id,omitempty"`
	At         time.Time `json:"at"`
}

type ImportedEvent struct {
	EventID int64     `json:"event_id"`
	Added   int       `json:"added"`
	Errors  int       `json:"errors"`
	At      time.Time `json:"at"`
}

type NATSPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

func NewNATSPublisher(url string, log zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("event-checkin"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, log: logger.Component(log, "events")}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	p.log.Debug().Str("subject", subject).RawJSON("data", payload).Msg("publishing event")
	return p.conn.Publish(subject, payload)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NopPublisher discards events when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
