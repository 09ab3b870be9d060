package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/cache"
	"github.com/LeventeLantos/event-checkin/internal/client"
	"github.com/LeventeLantos/event-checkin/internal/events"
	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/LeventeLantos/event-checkin/internal/repo"
	"github.com/rs/zerolog"
)

var ErrNoPhone = errors.New("attendee has no phone number")

type QRComposer interface {
	Compose(eventID, attendeeID int64) ([]byte, error)
}

type InvitationService struct {
	events      repo.EventRepository
	attendees   repo.AttendeeRepository
	composer    QRComposer
	dispatcher  *Dispatcher
	cache       cache.InvitationCache
	publisher   events.Publisher
	countryCode string
	now         func() time.Time
	log         zerolog.Logger
}

type InvitationDeps struct {
	Events      repo.EventRepository
	Attendees   repo.AttendeeRepository
	Composer    QRComposer
	Dispatcher  *Dispatcher
	Cache       cache.InvitationCache
	Publisher   events.Publisher
	CountryCode string
	Log         zerolog.Logger
}

// NewInvitationService wires the dispatcher hooks so every delivery outcome
// is persisted, cached and published.
func NewInvitationService(deps InvitationDeps) *InvitationService {
	s := &InvitationService{
		events:      deps.Events,
		attendees:   deps.Attendees,
		composer:    deps.Composer,
		dispatcher:  deps.Dispatcher,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		countryCode: deps.CountryCode,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logger.Component(deps.Log, "invitations"),
	}
	if s.cache == nil {
		s.cache = cache.NopCache{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	s.dispatcher.WithHooks(s.recordSent, s.recordFailed)
	return s
}

// SendEvent runs one bulk batch for the event.
func (s *InvitationService) SendEvent(ctx context.Context, eventID int64) (model.DispatchResult, error) {
	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return model.DispatchResult{}, err
	}
	attendees, err := s.attendees.ListAttendees(ctx, eventID, "")
	if err != nil {
		return model.DispatchResult{}, err
	}
	return s.dispatcher.Dispatch(ctx, attendees, s.producer(ev))
}

// SendOne sends a single invitation. Unlike a bulk batch it also retries
// attendees whose last attempt failed.
func (s *InvitationService) SendOne(ctx context.Context, attendeeID int64) (string, error) {
	a, err := s.attendees.GetAttendee(ctx, attendeeID)
	if err != nil {
		return "", err
	}
	if !a.HasPhone() {
		return "", ErrNoPhone
	}
	if a.InvitationStatus == model.Sent {
		return "", model.ErrInvitationAlreadySent
	}
	ev, err := s.events.GetEvent(ctx, a.EventID)
	if err != nil {
		return "", err
	}
	return s.dispatcher.Deliver(ctx, a, s.producer(ev))
}

func (s *InvitationService) Receipt(ctx context.Context, attendeeID int64) (*cache.Receipt, error) {
	return s.cache.LastSent(ctx, attendeeID)
}

// QRCode renders the attendee's check-in code.
func (s *InvitationService) QRCode(ctx context.Context, attendeeID int64) ([]byte, error) {
	a, err := s.attendees.GetAttendee(ctx, attendeeID)
	if err != nil {
		return nil, err
	}
	return s.composer.Compose(a.EventID, a.ID)
}

func (s *InvitationService) producer(ev *model.Event) Produce {
	return func(_ context.Context, a *model.Attendee) (client.Message, error) {
		png, err := s.composer.Compose(ev.ID, a.ID)
		if err != nil {
			return client.Message{}, fmt.Errorf("compose qr: %w", err)
		}
		return client.Message{
			ChatID:         a.FormattedPhone(s.countryCode),
			Text:           InvitationText(ev, a),
			Attachment:     png,
			AttachmentName: fmt.Sprintf("qr_%d.png", a.ID),
		}, nil
	}
}

func (s *InvitationService) recordSent(ctx context.Context, a *model.Attendee, remoteID string) error {
	if err := a.TransitionInvitation(model.Sent); err != nil {
		return err
	}
	if err := s.attendees.SetInvitationStatus(ctx, a.ID, model.Sent); err != nil {
		return err
	}
	at := s.now()
	if err := s.cache.StoreSent(ctx, a.ID, remoteID, at); err != nil {
		s.log.Warn().Err(err).Int64("attendee_id", a.ID).Msg("caching invitation receipt failed")
	}
	s.publish(ctx, events.InvitationSent, events.InvitationEvent{
		EventID: a.EventID, AttendeeID: a.ID, RemoteMessageID: remoteID, At: at,
	})
	return nil
}

func (s *InvitationService) recordFailed(ctx context.Context, a *model.Attendee, reason string) error {
	if err := a.TransitionInvitation(model.Failed); err != nil {
		return err
	}
	if err := s.attendees.SetInvitationStatus(ctx, a.ID, model.Failed); err != nil {
		return err
	}
	s.publish(ctx, events.InvitationFailed, events.InvitationEvent{
		EventID: a.EventID, AttendeeID: a.ID, Error: reason, At: s.now(),
	})
	return nil
}

func (s *InvitationService) publish(ctx context.Context, subject string, data any) {
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.log.Warn().Err(err).Str("subject", subject).Msg("publishing event failed")
	}
}

// InvitationText is the WhatsApp body that accompanies the QR code.
func InvitationText(ev *model.Event, a *model.Attendee) string {
	description := strings.TrimSpace(ev.Description)
	if description == "" {
		description = "Event invitation"
	}
	date := "TBD"
	if ev.Date != nil {
		date = ev.Date.Format("2006-01-02 15:04")
	}
	address := strings.TrimSpace(ev.Address)
	if address == "" {
		address = "TBD"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎉 %s\n\n", ev.Title)
	fmt.Fprintf(&b, "Hello %s!\n\n", a.Name)
	fmt.Fprintf(&b, "%s\n\n", description)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Address: %s\n\n", address)
	b.WriteString("Show the QR code below at the entrance to mark your attendance.")
	return b.String()
}
