package models

import (
	"time"

	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
)

// QuoteStatus is the lifecycle state of a quote version.
type QuoteStatus string

const (
	StatusDraft    QuoteStatus = "Draft"
	StatusCreated  QuoteStatus = "Created"
	StatusSent     QuoteStatus = "Sent"
	StatusAccepted QuoteStatus = "Accepted"
	StatusRejected QuoteStatus = "Rejected"
)

// transitions lists every allowed move. Accepted/Rejected -> Created is the administrative reset.
var transitions = map[QuoteStatus][]QuoteStatus{
	StatusDraft:    {StatusCreated},
	StatusCreated:  {StatusSent},
	StatusSent:     {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusCreated},
	StatusRejected: {StatusCreated},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to QuoteStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the client has answered.
func (s QuoteStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// transition moves v to the target status and applies the timestamp side effects.
func (v *QuoteVersion) transition(to QuoteStatus, now time.Time) error {
	if !CanTransition(v.Status, to) {
		return apperr.Transition(string(v.Status), string(to))
	}
	from := v.Status
	switch to {
	case StatusCreated:
		if from.IsTerminal() {
			v.AcceptedAt = nil
			v.RejectedAt = nil
			v.ClientSelectedAddOns = nil
		}
		if v.CreatedAt == nil {
			t := now
			v.CreatedAt = &t
		}
	case StatusAccepted:
		t := now
		v.AcceptedAt = &t
		v.RejectedAt = nil
	case StatusRejected:
		t := now
		v.RejectedAt = &t
		v.AcceptedAt = nil
	}
	v.Status = to
	return nil
}
