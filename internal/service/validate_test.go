package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/LeventeLantos/event-checkin/internal/model"
)

func TestAttendeeInput_NewAttendee(t *testing.T) {
	a, err := AttendeeInput{Name: " Jane ", Email: "jane@x.com", Phone: "3001234567", AttendanceStatus: "confirmed"}.NewAttendee(4)
	if err != nil {
		t.Fatalf("NewAttendee() error: %v", err)
	}
	if a.EventID != 4 || a.Name != "Jane" || a.AttendanceStatus != model.Confirmed || a.InvitationStatus != model.NotSent {
		t.Fatalf("unexpected attendee: %+v", a)
	}
}

func TestAttendeeInput_ValidationMessages(t *testing.T) {
	_, err := AttendeeInput{Email: "bad", AttendanceStatus: "vip"}.NewAttendee(1)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"name can't be blank", "email must be a valid email", "attendance_status must be one of"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestAttendeeInput_ApplyTo_UsesTransitions(t *testing.T) {
	a := &model.Attendee{Name: "Ana", Email: "ana@x.com", AttendanceStatus: model.Attended}

	err := AttendeeInput{Name: "Ana", Email: "ana@x.com", AttendanceStatus: "registered"}.ApplyTo(a)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition leaving attended, got %v", err)
	}

	err = AttendeeInput{Name: "Ana B", Email: "ana@x.com", Phone: "123"}.ApplyTo(a)
	if err != nil {
		t.Fatalf("ApplyTo() error: %v", err)
	}
	if a.Name != "Ana B" || a.Phone != "123" || a.AttendanceStatus != model.Attended {
		t.Fatalf("unexpected attendee after update: %+v", a)
	}
}

func TestEventInput_Apply(t *testing.T) {
	var e model.Event
	if err := (EventInput{Title: "  "}).Apply(&e); !IsValidation(err) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
	if err := (EventInput{Title: " Gala ", Address: " Hall "}).Apply(&e); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if e.Title != "Gala" || e.Address != "Hall" {
		t.Fatalf("unexpected event: %+v", e)
	}
}
