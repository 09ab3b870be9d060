package model

import (
	"context"
	"errors"
	"testing"
)

func TestFormatPhoneForWhatsApp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		phone string
		want  string
	}{
		{"10-digit local gets country code", "3001234567", "573001234567"},
		{"formatting characters stripped", "(300) 123-4567", "573001234567"},
		{"already international", "573001234567", "573001234567"},
		{"plus prefix stripped", "+57 300 123 4567", "573001234567"},
		{"short number unchanged", "12345", "12345"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatPhoneForWhatsApp(tc.phone, "57"); got != tc.want {
				t.Fatalf("FormatPhoneForWhatsApp(%q) = %q, want %q", tc.phone, got, tc.want)
			}
		})
	}
}

func TestNewAttendee_Defaults(t *testing.T) {
	a := NewAttendee(7, "  Jane ", "jane@x.com ", " 3001234567")

	if a.EventID != 7 {
		t.Fatalf("expected event id 7, got %d", a.EventID)
	}
	if a.Name != "Jane" || a.Email != "jane@x.com" || a.Phone != "3001234567" {
		t.Fatalf("expected trimmed fields, got %+v", a)
	}
	if a.AttendanceStatus != Registered {
		t.Fatalf("expected registered, got %s", a.AttendanceStatus)
	}
	if a.InvitationStatus != NotSent {
		t.Fatalf("expected not_sent, got %s", a.InvitationStatus)
	}
	if got := a.FormattedPhone("57"); got != "573001234567" {
		t.Fatalf("expected formatted phone 573001234567, got %q", got)
	}
}

func TestMarkAttended(t *testing.T) {
	t.Run("registered and confirmed can be marked", func(t *testing.T) {
		for _, from := range []AttendanceStatus{Registered, Confirmed} {
			a := &Attendee{AttendanceStatus: from}
			if err := a.MarkAttended(); err != nil {
				t.Fatalf("from %s: unexpected error: %v", from, err)
			}
			if a.AttendanceStatus != Attended {
				t.Fatalf("from %s: expected attended, got %s", from, a.AttendanceStatus)
			}
		}
	})

	t.Run("second mark is rejected and status unchanged", func(t *testing.T) {
		a := &Attendee{AttendanceStatus: Registered}
		if err := a.MarkAttended(); err != nil {
			t.Fatalf("first mark: %v", err)
		}
		err := a.MarkAttended()
		if !errors.Is(err, ErrAlreadyAttended) {
			t.Fatalf("expected ErrAlreadyAttended, got %v", err)
		}
		if a.AttendanceStatus != Attended {
			t.Fatalf("expected status to stay attended, got %s", a.AttendanceStatus)
		}
	})

	t.Run("absent and cancelled cannot check in", func(t *testing.T) {
		for _, from := range []AttendanceStatus{Absent, Cancelled} {
			a := &Attendee{AttendanceStatus: from}
			err := a.MarkAttended()
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("from %s: expected ErrInvalidTransition, got %v", from, err)
			}
			if a.AttendanceStatus != from {
				t.Fatalf("from %s: status changed to %s", from, a.AttendanceStatus)
			}
		}
	})
}

func TestTransitionAttendance_UnknownStatus(t *testing.T) {
	a := &Attendee{AttendanceStatus: Registered}
	if err := a.TransitionAttendance("vip"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestTransitionInvitation(t *testing.T) {
	a := &Attendee{InvitationStatus: NotSent}
	if err := a.TransitionInvitation(Failed); err != nil {
		t.Fatalf("not_sent -> failed: %v", err)
	}
	if err := a.TransitionInvitation(Sent); err != nil {
		t.Fatalf("failed -> sent: %v", err)
	}
	if err := a.TransitionInvitation(Failed); !errors.Is(err, ErrInvitationAlreadySent) {
		t.Fatalf("expected ErrInvitationAlreadySent, got %v", err)
	}
	if a.InvitationStatus != Sent {
		t.Fatalf("expected sent, got %s", a.InvitationStatus)
	}
}

func TestEligibleForDispatch(t *testing.T) {
	cases := []struct {
		name string
		a    Attendee
		want bool
	}{
		{"phone and not sent", Attendee{Phone: "3001234567", InvitationStatus: NotSent}, true},
		{"empty phone", Attendee{Phone: "", InvitationStatus: NotSent}, false},
		{"blank phone", Attendee{Phone: "   ", InvitationStatus: NotSent}, false},
		{"already sent", Attendee{Phone: "3001234567", InvitationStatus: Sent}, false},
		{"failed", Attendee{Phone: "3001234567", InvitationStatus: Failed}, false},
	}
	for _, tc := range cases {
		if got := tc.a.EligibleForDispatch(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestParseStatuses(t *testing.T) {
	if s, err := ParseAttendanceStatus("confirmed"); err != nil || s != Confirmed {
		t.Fatalf("expected confirmed, got %q err=%v", s, err)
	}
	if _, err := ParseAttendanceStatus("nope"); err == nil {
		t.Fatalf("expected error for unknown attendance status")
	}
	if s, err := ParseInvitationStatus("failed"); err != nil || s != Failed {
		t.Fatalf("expected failed, got %q err=%v", s, err)
	}
	if _, err := ParseInvitationStatus(""); err == nil {
		t.Fatalf("expected error for empty invitation status")
	}
}

func TestAdminContext(t *testing.T) {
	if _, ok := AdminFromContext(context.Background()); ok {
		t.Fatalf("expected no admin in empty context")
	}
	admin := &AdminUser{ID: 1, Email: "a@b.c"}
	got, ok := AdminFromContext(WithAdmin(context.Background(), admin))
	if !ok || got != admin {
		t.Fatalf("expected admin from context, got %v ok=%v", got, ok)
	}
}

func TestDispatchResult_SkippedMessage(t *testing.T) {
	if msg := (DispatchResult{}).SkippedMessage(); msg != "" {
		t.Fatalf("expected empty message, got %q", msg)
	}
	r := DispatchResult{Skipped: 3}
	if msg := r.SkippedMessage(); msg != "3 additional eligible attendees will be sent in next batch" {
		t.Fatalf("unexpected message %q", msg)
	}
	if !r.Success() {
		t.Fatalf("expected success with no failures")
	}
}

func TestDispatchResult_SuccessRequiresNoErrors(t *testing.T) {
	r := DispatchResult{Sent: 1, Errors: []string{"Ana: whatsapp sent but invitation status not saved"}}
	if r.Success() {
		t.Fatalf("expected errors to mark the batch unsuccessful")
	}
}
