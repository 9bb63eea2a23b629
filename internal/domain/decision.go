package domain

// DenyReason enumerates why the policy evaluator rejected a candidate.
type DenyReason string

const (
	DenyDailyCapReached    DenyReason = "daily_cap_reached"
	DenyOrgCapReached      DenyReason = "org_cap_reached"
	DenyAlreadyReplied     DenyReason = "already_replied"
	DenyFollowupNotDue     DenyReason = "followup_not_due"
	DenyFollowupCapReached DenyReason = "followup_cap_reached"
	DenyAlreadyContacted   DenyReason = "already_contacted"
)

// Decision is the policy evaluator's verdict for one candidate.
// Either Allowed is true and Kind says what may be sent, or Allowed is
// false and Reason says why not.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Kind    EventType  `json:"kind,omitempty"`
	Reason  DenyReason `json:"reason,omitempty"`
}

// Allow builds an allow decision of the given kind.
func Allow(kind EventType) Decision { return Decision{Allowed: true, Kind: kind} }

// Deny builds a deny decision with the given reason.
func Deny(reason DenyReason) Decision { return Decision{Reason: reason} }
