// Package ledger implements the outreach ledger service.
//
// This is the single source of truth for who has been contacted, when, and
// with what outcome. Every send attempt flows through it, and the caps
// (daily, per-organization, per-contact follow-up) are enforced against it.
// It also owns reply suppression: once an address is marked replied it is
// permanently removed from eligibility.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package ledger
