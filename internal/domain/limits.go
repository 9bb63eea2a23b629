package domain

import "time"

// Limits are the hard sending caps the policy evaluator enforces.
// Zero values are not meaningful; use DefaultLimits or config.
type Limits struct {
	// DailyCap bounds sent events per calendar day, across all contacts.
	DailyCap int `json:"daily_cap"`
	// OrgCap bounds sent events per organization, for all time.
	OrgCap int `json:"org_cap"`
	// MaxFollowups bounds follow-up sends per contact.
	MaxFollowups int `json:"max_followups"`
	// FollowupAfter is how long after the last send a follow-up becomes due.
	FollowupAfter time.Duration `json:"followup_after"`
}

// DefaultLimits mirrors the long-standing production defaults: 35 sends a
// day, 3 per organization, a single follow-up after 5 days.
func DefaultLimits() Limits {
	return Limits{
		DailyCap:      35,
		OrgCap:        3,
		MaxFollowups:  1,
		FollowupAfter: 5 * 24 * time.Hour,
	}
}
