package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/importer"
	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/LeventeLantos/event-checkin/internal/qr"
	"github.com/LeventeLantos/event-checkin/internal/repo"
	"github.com/LeventeLantos/event-checkin/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxUploadBytes = 10 << 20

type Deps struct {
	Events      repo.EventRepository
	Attendees   repo.AttendeeRepository
	Auth        *service.AuthService
	Invitations *service.InvitationService
	Imports     *service.ImportService
	Attendance  *service.AttendanceService
	SessionTTL  time.Duration
	Log         zerolog.Logger
}

type Handler struct {
	events      repo.EventRepository
	attendees   repo.AttendeeRepository
	auth        *service.AuthService
	invitations *service.InvitationService
	imports     *service.ImportService
	attendance  *service.AttendanceService
	sessionTTL  time.Duration
	log         zerolog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		events:      d.Events,
		attendees:   d.Attendees,
		auth:        d.Auth,
		invitations: d.Invitations,
		imports:     d.Imports,
		attendance:  d.Attendance,
		sessionTTL:  d.SessionTTL,
		log:         logger.Component(d.Log, "api"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

var errBadID = errors.New("invalid id")

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without internals.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Details: ve.Messages})
	case errors.Is(err, errBadID):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, repo.ErrDuplicatePhone),
		errors.Is(err, repo.ErrDuplicateEmail),
		errors.Is(err, model.ErrAlreadyAttended),
		errors.Is(err, model.ErrInvitationAlreadySent):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrUnknownStatus),
		errors.Is(err, model.ErrNoEligibleAttendees),
		errors.Is(err, service.ErrNoPhone),
		errors.Is(err, importer.ErrUnsupportedFormat),
		errors.Is(err, importer.ErrEmptyWorkbook),
		errors.Is(err, qr.ErrInvalidID):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrStatusNotSaved):
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("invitation sent without status update")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
