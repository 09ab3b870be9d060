package repo

import (
	"context"
	"errors"

	"github.com/LeventeLantos/event-checkin/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicatePhone = errors.New("phone number already registered for this event")
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrStaleStatus means the row changed between read and conditional update.
	ErrStaleStatus = errors.New("status changed concurrently")
)

type EventRepository interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id int64) error
}

type AttendeeRepository interface {
	CreateAttendee(ctx context.Context, a *model.Attendee) error
	GetAttendee(ctx context.Context, id int64) (*model.Attendee, error)
	GetEventAttendee(ctx context.Context, eventID, attendeeID int64) (*model.Attendee, error)
	ListAttendees(ctx context.Context, eventID int64, search string) ([]model.Attendee, error)
	ListAllAttendees(ctx context.Context) ([]model.Attendee, error)
	UpdateAttendee(ctx context.Context, a *model.Attendee) error
	DeleteAttendee(ctx context.Context, eventID, attendeeID int64) error
	DeleteEventAttendees(ctx context.Context, eventID int64) (int64, error)
	SetInvitationStatus(ctx context.Context, id int64, status model.InvitationStatus) error
	SetAttendanceStatus(ctx context.Context, id int64, from, to model.AttendanceStatus) error
}

type AdminRepository interface {
	CreateAdmin(ctx context.Context, a *model.AdminUser) error
	FindAdminByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	GetAdmin(ctx context.Context, id int64) (*model.AdminUser, error)
}
