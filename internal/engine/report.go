package engine

import (
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Recipient is one successful send within a run.
type Recipient struct {
	Address      string           `json:"address"`
	Organization string           `json:"organization"`
	Kind         domain.EventType `json:"kind"`
}

// Report summarizes one run for the operator and the summary notifier.
type Report struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// OutsideWindow is true when the run was a no-op because the clock
	// was outside the send window. All other fields are zero then.
	OutsideWindow bool `json:"outside_window,omitempty"`

	DryRun bool `json:"dry_run,omitempty"`

	Seen          int                       `json:"seen"`
	InitialsSent  int                       `json:"initials_sent"`
	FollowupsSent int                       `json:"followups_sent"`
	Denied        map[domain.DenyReason]int `json:"denied,omitempty"`
	Skipped       int                       `json:"skipped"`
	Invalid       int                       `json:"invalid"`

	Recipients []Recipient `json:"recipients,omitempty"`
}

func newReport(started time.Time, dryRun bool) *Report {
	return &Report{
		Started: started,
		DryRun:  dryRun,
		Denied:  make(map[domain.DenyReason]int),
	}
}

// SentTotal is the number of sends the run performed (or, for a dry run,
// would have performed).
func (r *Report) SentTotal() int { return r.InitialsSent + r.FollowupsSent }

// DeniedTotal is the number of candidates rejected by policy.
func (r *Report) DeniedTotal() int {
	n := 0
	for _, v := range r.Denied {
		n += v
	}
	return n
}
