package domain

import "time"

// EventType distinguishes the first touch from a timed follow-up.
type EventType string

const (
	EventInitial  EventType = "initial"
	EventFollowup EventType = "followup"
)

// Outcome records whether the attempt actually left the system.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
)

// SkipReason enumerates why an attempt was recorded as skipped.
// Present iff Outcome == OutcomeSkipped.
type SkipReason string

const (
	SkipDispatchFailed   SkipReason = "dispatch_failed"
	SkipInvalidCandidate SkipReason = "invalid_candidate"
)

// OutreachEvent is an immutable fact: a contact was attempted at a point in
// time. Events are append-only; the Contact aggregate is derived from them
// incrementally and must be reconstructable from them for audit.
type OutreachEvent struct {
	ID             string     `json:"id" db:"id"`
	ContactAddress string     `json:"contact_address" db:"contact_address"`
	Organization   string     `json:"organization" db:"organization"`
	EventType      EventType  `json:"event_type" db:"event_type"`
	OccurredAt     time.Time  `json:"occurred_at" db:"occurred_at"`
	Outcome        Outcome    `json:"outcome" db:"outcome"`
	SkipReason     SkipReason `json:"skip_reason,omitempty" db:"skip_reason"`
}

// Sent reports whether the event consumed cap headroom.
func (e *OutreachEvent) Sent() bool { return e.Outcome == OutcomeSent }

// Day returns the calendar day (UTC) the event belongs to, which is the
// daily counter's key. Date is data here, not a timer-driven reset.
func (e *OutreachEvent) Day() string {
	return e.OccurredAt.UTC().Format("2006-01-02")
}
