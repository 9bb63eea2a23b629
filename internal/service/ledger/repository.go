package ledger

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Repository defines the data access contract for the outreach ledger.
// Addresses passed to any method are already normalized by the service.
type Repository interface {
	// GetContact returns the contact for an address, or ErrNotFound.
	GetContact(ctx context.Context, address string) (*domain.Contact, error)

	// AppendEvent durably records one outreach event and maintains the
	// contact aggregate. For sent outcomes the append is atomic with the
	// cap checks: the daily and organization counters are verified and
	// incremented in the same transaction as the insert, so no interleaved
	// append can push a counter past its cap. Returns ErrCapExceeded if a
	// cap has no headroom and ErrDuplicateInitial for a second initial
	// sent event on the same contact.
	AppendEvent(ctx context.Context, e *domain.OutreachEvent, limits domain.Limits) error

	// CountSentByOrg returns the number of sent events for an organization,
	// optionally restricted to events at or after since.
	CountSentByOrg(ctx context.Context, organization string, since *time.Time) (int, error)

	// CountSentOnDay returns the number of sent events for a calendar day
	// (UTC, "2006-01-02").
	CountSentOnDay(ctx context.Context, day string) (int, error)

	// MarkReplied flips the contact's replied flag. Idempotent on already
	// replied contacts; returns ErrNotFound for unknown addresses.
	MarkReplied(ctx context.Context, address string) error

	// FollowupCandidates returns contacts with a successful initial send,
	// no reply, follow-up headroom, and a last contact at or before
	// asOf - threshold, oldest first.
	FollowupCandidates(ctx context.Context, asOf time.Time, threshold time.Duration, maxFollowups int) ([]domain.Contact, error)

	// EventsByAddress returns the full event history for a contact in
	// occurrence order, for replay and audit.
	EventsByAddress(ctx context.Context, address string) ([]domain.OutreachEvent, error)

	// Stats returns cumulative ledger counters.
	Stats(ctx context.Context, today string) (*Stats, error)
}

// Stats are the all-time counters reported by the stats command and the
// HTTP surface.
type Stats struct {
	TotalSent       int     `json:"total_sent"`
	InitialsSent    int     `json:"initials_sent"`
	FollowupsSent   int     `json:"followups_sent"`
	TotalSkipped    int     `json:"total_skipped"`
	TotalReplies    int     `json:"total_replies"`
	ReplyRate       float64 `json:"reply_rate"`
	SentToday       int     `json:"sent_today"`
	OrgsContacted   int     `json:"organizations_contacted"`
	ContactsTracked int     `json:"contacts_tracked"`
}
