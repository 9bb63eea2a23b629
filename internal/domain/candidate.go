package domain

// Candidate is a prospective contact surfaced by a target feed, not yet
// evaluated. Attributes are opaque pass-through data for message
// composition; policy never inspects them.
type Candidate struct {
	Address      string            `json:"address"`
	Organization string            `json:"organization"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Valid reports whether the candidate is well-formed enough to evaluate:
// a plausible address and a non-empty organization.
func (c Candidate) Valid() bool {
	return ValidAddress(c.Address) && c.Organization != ""
}
