package model

import (
	"fmt"
	"strings"
	"time"
)

type Attendee struct {
	ID               int64            `json:"id"`
	EventID          int64            `json:"event_id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	Open1            string           `json:"open1,omitempty"`
	Open2            string           `json:"open2,omitempty"`
	Open3            string           `json:"open3,omitempty"`
	AttendanceStatus AttendanceStatus `json:"attendance_status"`
	InvitationStatus InvitationStatus `json:"invitation_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewAttendee returns an attendee in its initial lifecycle states.
func NewAttendee(eventID int64, name, email, phone string) *Attendee {
	return &Attendee{
		EventID:          eventID,
		Name:             strings.TrimSpace(name),
		Email:            strings.TrimSpace(email),
		Phone:            strings.TrimSpace(phone),
		AttendanceStatus: Registered,
		InvitationStatus: NotSent,
	}
}

func (a *Attendee) HasPhone() bool {
	return strings.TrimSpace(a.Phone) != ""
}

// EligibleForDispatch reports whether a bulk send may pick this attendee up.
func (a *Attendee) EligibleForDispatch() bool {
	return a.HasPhone() && a.InvitationStatus == NotSent
}

func (a *Attendee) TransitionAttendance(next AttendanceStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: attendance status %q", ErrUnknownStatus, next)
	}
	if a.AttendanceStatus == Attended && next == Attended {
		return ErrAlreadyAttended
	}
	if !a.AttendanceStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: attendance %s -> %s", ErrInvalidTransition, a.AttendanceStatus, next)
	}
	a.AttendanceStatus = next
	return nil
}

// MarkAttended is the check-in transition. Re-marking is rejected and the
// status is left untouched.
func (a *Attendee) MarkAttended() error {
	return a.TransitionAttendance(Attended)
}

func (a *Attendee) TransitionInvitation(next InvitationStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: invitation status %q", ErrUnknownStatus, next)
	}
	if a.InvitationStatus == Sent {
		return ErrInvitationAlreadySent
	}
	if !a.InvitationStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: invitation %s -> %s", ErrInvalidTransition, a.InvitationStatus, next)
	}
	a.InvitationStatus = next
	return nil
}

func (a *Attendee) FormattedPhone(countryCode string) string {
	return FormatPhoneForWhatsApp(a.Phone, countryCode)
}

// FormatPhoneForWhatsApp strips everything but digits and prepends the
// country code to 10-digit local numbers. Other lengths pass through.
func FormatPhoneForWhatsApp(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return countryCode + digits
	}
	return digits
}
