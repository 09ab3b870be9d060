package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidationError carries readable messages, one per failing field.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &ValidationError{Messages: msgs}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " can't be blank"
	case "email":
		return fe.Field() + " must be a valid email"
	case "max":
		return fmt.Sprintf("%s is too long (maximum is %s characters)", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

type EventInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Address     string     `json:"address" validate:"max=500"`
	Date        *time.Time `json:"date"`
}

func (in EventInput) Normalise() EventInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	return in
}

// Apply validates the input and copies it onto e.
func (in EventInput) Apply(e *model.Event) error {
	in = in.Normalise()
	if err := check(in); err != nil {
		return err
	}
	e.Title = in.Title
	e.Description = in.Description
	e.Address = in.Address
	e.Date = in.Date
	return nil
}

type AttendeeInput struct {
	Name             string `json:"name" validate:"required,max=200"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Phone            string `json:"phone" validate:"max=32"`
	Open1            string `json:"open1" validate:"max=500"`
	Open2            string `json:"open2" validate:"max=500"`
	Open3            string `json:"open3" validate:"max=500"`
	AttendanceStatus string `json:"attendance_status" validate:"omitempty,oneof=registered confirmed attended absent cancelled"`
}

func (in AttendeeInput) Normalise() AttendeeInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Open1 = strings.TrimSpace(in.Open1)
	in.Open2 = strings.TrimSpace(in.Open2)
	in.Open3 = strings.TrimSpace(in.Open3)
	in.AttendanceStatus = strings.TrimSpace(in.AttendanceStatus)
	return in
}

// NewAttendee validates the input and builds a fresh attendee for eventID.
func (in AttendeeInput) NewAttendee(eventID int64) (*model.Attendee, error) {
	in = in.Normalise()
	if err := check(in); err != nil {
		return nil, err
	}
	a := model.NewAttendee(eventID, in.Name, in.Email, in.Phone)
	a.Open1, a.Open2, a.Open3 = in.Open1, in.Open2, in.Open3
	if in.AttendanceStatus != "" {
		if err := a.TransitionAttendance(model.AttendanceStatus(in.AttendanceStatus)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// ApplyTo validates the input and updates a in place. A status change goes
// through the attendance transition rules.
func (in AttendeeInput) ApplyTo(a *model.Attendee) error {
	in = in.Normalise()
	if err := check(in); err != nil {
		return err
	}
	if in.AttendanceStatus != "" && model.AttendanceStatus(in.AttendanceStatus) != a.AttendanceStatus {
		if err := a.TransitionAttendance(model.AttendanceStatus(in.AttendanceStatus)); err != nil {
			return err
		}
	}
	a.Name, a.Email, a.Phone = in.Name, in.Email, in.Phone
	a.Open1, a.Open2, a.Open3 = in.Open1, in.Open2, in.Open3
	return nil
}
