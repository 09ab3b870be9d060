package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrAlreadyAttended       = errors.New("attendee already marked as attended")
	ErrInvitationAlreadySent = errors.New("invitation already sent")
	ErrUnknownStatus         = errors.New("unknown status")
)

type AttendanceStatus string

const (
	Registered AttendanceStatus = "registered"
	Confirmed  AttendanceStatus = "confirmed"
	Attended   AttendanceStatus = "attended"
	Absent     AttendanceStatus = "absent"
	Cancelled  AttendanceStatus = "cancelled"
)

var attendanceTransitions = map[AttendanceStatus][]AttendanceStatus{
	Registered: {Confirmed, Attended, Absent, Cancelled},
	Confirmed:  {Registered, Attended, Absent, Cancelled},
	Absent:     {Registered, Confirmed},
	Cancelled:  {Registered},
	Attended:   nil,
}

func ParseAttendanceStatus(raw string) (AttendanceStatus, error) {
	s := AttendanceStatus(raw)
	if _, ok := attendanceTransitions[s]; !ok {
		return "", fmt.Errorf("%w: attendance status %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

func (s AttendanceStatus) Valid() bool {
	_, ok := attendanceTransitions[s]
	return ok
}

// CanTransitionTo reports whether s may move to next. Staying in the same
// state is not a transition and is always rejected.
func (s AttendanceStatus) CanTransitionTo(next AttendanceStatus) bool {
	for _, allowed := range attendanceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type InvitationStatus string

const (
	NotSent InvitationStatus = "not_sent"
	Sent    InvitationStatus = "sent"
	Failed  InvitationStatus = "failed"
)

var invitationTransitions = map[InvitationStatus][]InvitationStatus{
	NotSent: {Sent, Failed},
	// failed invitations are only re-attempted by an explicit single send
	Failed: {Sent, Failed},
	Sent:   nil,
}

func ParseInvitationStatus(raw string) (InvitationStatus, error) {
	s := InvitationStatus(raw)
	if _, ok := invitationTransitions[s]; !ok {
		return "", fmt.Errorf("%w: invitation status %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

func (s InvitationStatus) Valid() bool {
	_, ok := invitationTransitions[s]
	return ok
}

func (s InvitationStatus) CanTransitionTo(next InvitationStatus) bool {
	for _, allowed := range invitationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
