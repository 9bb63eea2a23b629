// Package policy implements the outreach decision function.
//
// Evaluate is pure: given a ledger snapshot, the configured caps, and a
// clock reading, it returns an allow/deny verdict with a reason. It never
// writes anything; callers are responsible for recording outcomes in the
// ledger. Rule ordering matters and is pinned by tests: a reply is an
// absolute stop signal that short-circuits everything else, and caps are
// checked before timing eligibility.
package policy
