package model

import (
	"errors"
	"fmt"
)

var ErrNoEligibleAttendees = errors.New("no eligible attendees found (need phone number and 'not_sent' status)")

// DispatchResult is the outcome of one bulk invitation batch.
type DispatchResult struct {
	Eligible  int      `json:"eligible"`
	Attempted int      `json:"attempted"`
	Sent      int      `json:"sent"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
	Skipped   int      `json:"skipped"`
}

// Success reports a batch with no failed sends and no unrecorded outcomes.
func (r DispatchResult) Success() bool {
	return r.Failed == 0 && len(r.Errors) == 0
}

func (r DispatchResult) SkippedMessage() string {
	if r.Skipped == 0 {
		return ""
	}
	return fmt.Sprintf("%d additional eligible attendees will be sent in next batch", r.Skipped)
}
