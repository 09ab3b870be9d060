package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/events"
	"github.com/LeventeLantos/event-checkin/internal/importer"
	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/LeventeLantos/event-checkin/internal/repo"
	"github.com/rs/zerolog"
)

type ImportResult struct {
	Added  int      `json:"added"`
	Errors []string `json:"errors"`
}

func (r ImportResult) Summary() string {
	if len(r.Errors) == 0 {
		return fmt.Sprintf("Successfully added %d attendees to the event.", r.Added)
	}
	return fmt.Sprintf("%d attendees added successfully. %d rows had errors.", r.Added, len(r.Errors))
}

type ImportService struct {
	events    repo.EventRepository
	attendees repo.AttendeeRepository
	publisher events.Publisher
	log       zerolog.Logger
}

func NewImportService(ev repo.EventRepository, at repo.AttendeeRepository, pub events.Publisher, log zerolog.Logger) *ImportService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &ImportService{
		events:    ev,
		attendees: at,
		publisher: pub,
		log:       logger.Component(log, "import"),
	}
}

// ImportFile parses an uploaded sheet and imports its rows into the event.
func (s *ImportService) ImportFile(ctx context.Context, eventID int64, filename, contentType string, r io.Reader) (ImportResult, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return ImportResult{}, err
	}
	rows, err := importer.Read(filename, contentType, r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.Import(ctx, eventID, rows)
}

// Import persists each non-blank row. A failing row is recorded as
// "Row N: ..." and the import moves on to the next one.
func (s *ImportService) Import(ctx context.Context, eventID int64, rows []importer.Row) (ImportResult, error) {
	res := ImportResult{Errors: []string{}}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if row.Blank() {
			continue
		}

		in := AttendeeInput{
			Name:  row.Name,
			Email: row.Email,
			Phone: row.Phone,
			Open1: row.Open1,
			Open2: row.Open2,
			Open3: row.Open3,
		}
		a, err := in.NewAttendee(eventID)
		if err == nil {
			err = s.attendees.CreateAttendee(ctx, a)
		}
		if err != nil {
			if !IsValidation(err) && !errors.Is(err, repo.ErrDuplicatePhone) {
				s.log.Error().Err(err).Int("row", row.Number).Msg("import row failed")
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %s", row.Number, rowError(err)))
			continue
		}
		res.Added++
	}

	s.log.Info().Int64("event_id", eventID).Int("added", res.Added).Int("errors", len(res.Errors)).Msg("attendee import finished")
	if err := s.publisher.Publish(ctx, events.AttendeesImported, events.ImportedEvent{
		EventID: eventID, Added: res.Added, Errors: len(res.Errors), At: time.Now().UTC(),
	}); err != nil {
		s.log.Warn().Err(err).Msg("publishing import event failed")
	}
	return res, nil
}

func rowError(err error) string {
	if errors.Is(err, repo.ErrDuplicatePhone) {
		return "phone has already been taken"
	}
	return err.Error()
}
