package policy

import (
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Snapshot is the ledger state a decision is made against. Within a run
// the snapshot is re-read per candidate from the run's own ledger view;
// concurrent runs are excluded by the run lock, so the view is stable.
type Snapshot struct {
	// Contact is the existing record for the candidate's address, or nil
	// if the address has never produced an event.
	Contact *domain.Contact
	// OrgSent is the all-time sent count for the candidate's organization.
	OrgSent int
	// SentToday is the sent count for the current UTC calendar day.
	SentToday int
}

// Evaluate decides whether the candidate may be contacted right now.
//
// Rule order, first match wins:
//  1. replied contacts are denied unconditionally
//  2. never-sent addresses get an initial, subject to daily and org caps
//  3. contacts with an initial send and follow-up headroom get a follow-up
//     once the threshold has elapsed, subject to the same caps
//  4. contacts whose follow-up is not yet due are denied followup_not_due
//  5. contacts out of follow-up headroom are denied followup_cap_reached
//  6. anything else is denied already_contacted
//
// A contact that exists only through skipped events has no successful
// initial send and is treated like an unseen address (rule 2): a skip is
// not a permanent denial.
func Evaluate(s Snapshot, limits domain.Limits, now time.Time) domain.Decision {
	c := s.Contact

	if c != nil && c.Replied {
		return domain.Deny(domain.DenyAlreadyReplied)
	}

	if c == nil || !c.InitialSent() {
		if s.SentToday >= limits.DailyCap {
			return domain.Deny(domain.DenyDailyCapReached)
		}
		if s.OrgSent >= limits.OrgCap {
			return domain.Deny(domain.DenyOrgCapReached)
		}
		return domain.Allow(domain.EventInitial)
	}

	elapsed := now.Sub(*c.LastContactedAt)
	due := elapsed >= limits.FollowupAfter // the exact boundary counts as due

	if c.FollowupCount < limits.MaxFollowups && due {
		if s.SentToday >= limits.DailyCap {
			return domain.Deny(domain.DenyDailyCapReached)
		}
		if s.OrgSent >= limits.OrgCap {
			return domain.Deny(domain.DenyOrgCapReached)
		}
		return domain.Allow(domain.EventFollowup)
	}

	if !due {
		return domain.Deny(domain.DenyFollowupNotDue)
	}

	if c.FollowupCount >= limits.MaxFollowups {
		return domain.Deny(domain.DenyFollowupCapReached)
	}

	return domain.Deny(domain.DenyAlreadyContacted)
}
