package service

import (
	"context"
	"errors"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/events"
	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/LeventeLantos/event-checkin/internal/repo"
	"github.com/rs/zerolog"
)

type AttendanceService struct {
	attendees repo.AttendeeRepository
	publisher events.Publisher
	log       zerolog.Logger
}

func NewAttendanceService(at repo.AttendeeRepository, pub events.Publisher, log zerolog.Logger) *AttendanceService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &AttendanceService{
		attendees: at,
		publisher: pub,
		log:       logger.Component(log, "attendance"),
	}
}

// MarkAttended checks an attendee in from a scanned QR code. The attendee
// must belong to eventID. A second scan returns ErrAlreadyAttended and
// changes nothing.
func (s *AttendanceService) MarkAttended(ctx context.Context, eventID, attendeeID int64) (*model.Attendee, error) {
	a, err := s.attendees.GetEventAttendee(ctx, eventID, attendeeID)
	if err != nil {
		return nil, err
	}

	from := a.AttendanceStatus
	if err := a.MarkAttended(); err != nil {
		return a, err
	}

	err = s.attendees.SetAttendanceStatus(ctx, a.ID, from, model.Attended)
	if errors.Is(err, repo.ErrStaleStatus) {
		// The row changed underneath us, usually a concurrent scan.
		current, getErr := s.attendees.GetAttendee(ctx, a.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.AttendanceStatus == model.Attended {
			return current, model.ErrAlreadyAttended
		}
		return current, model.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	var adminID int64
	if admin, ok := model.AdminFromContext(ctx); ok {
		adminID = admin.ID
	}
	s.log.Info().Int64("event_id", eventID).Int64("attendee_id", a.ID).Int64("admin_id", adminID).Msg("attendee checked in")

	if err := s.publisher.Publish(ctx, events.AttendeeAttended, events.AttendedEvent{
		EventID: eventID, AttendeeID: a.ID, AdminID: adminID, At: time.Now().UTC(),
	}); err != nil {
		s.log.Warn().Err(err).Msg("publishing attendance event failed")
	}
	return a, nil
}
