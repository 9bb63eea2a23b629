package domain

import (
	"strings"
	"time"
)

// ContactState describes where a contact sits in its outreach lifecycle.
type ContactState string

const (
	// ContactNew means the address has been seen but never successfully sent to.
	ContactNew ContactState = "new"
	// ContactContacted means an initial send succeeded.
	ContactContacted ContactState = "contacted"
	// ContactFollowedUp means at least one follow-up send succeeded.
	ContactFollowedUp ContactState = "followed_up"
	// ContactClosed means the contact replied; no further sends, ever.
	ContactClosed ContactState = "closed"
)

// Contact is the durable record for one unique address, with aggregate
// outreach state maintained incrementally from the event stream.
//
// The address is the identity: globally unique for the system's lifetime,
// compared case-insensitively after trimming (see NormalizeAddress).
// Contacts are never deleted.
type Contact struct {
	Address          string     `json:"address" db:"address"`
	Organization     string     `json:"organization" db:"organization"`
	FirstContactedAt *time.Time `json:"first_contacted_at,omitempty" db:"first_contacted_at"`
	LastContactedAt  *time.Time `json:"last_contacted_at,omitempty" db:"last_contacted_at"`
	FollowupCount    int        `json:"followup_count" db:"followup_count"`
	Replied          bool       `json:"replied" db:"replied"`
}

// InitialSent reports whether an initial sent event exists for the contact.
func (c *Contact) InitialSent() bool {
	return c.FirstContactedAt != nil
}

// State derives the lifecycle state from the aggregate fields.
func (c *Contact) State() ContactState {
	switch {
	case c.Replied:
		return ContactClosed
	case c.FollowupCount > 0:
		return ContactFollowedUp
	case c.InitialSent():
		return ContactContacted
	default:
		return ContactNew
	}
}

// NormalizeAddress canonicalizes an address for use as the dedup key:
// trimmed and lowercased. Every store lookup and every event goes through
// this so that "Jane.Doe@Example.COM " and "jane.doe@example.com" are the
// same contact.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidAddress reports whether an address is plausible enough to key a
// ledger record: non-empty after normalization, with a local part and a
// domain. Deliverability checks are the dispatcher's problem, not ours.
func ValidAddress(address string) bool {
	a := NormalizeAddress(address)
	at := strings.Index(a, "@")
	if at <= 0 || at == len(a)-1 {
		return false
	}
	return !strings.Contains(a[at+1:], "@") && strings.Contains(a[at+1:], ".")
}
