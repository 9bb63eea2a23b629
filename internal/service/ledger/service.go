package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Service implements ledger business logic on top of a Repository.
// It is safe for concurrent use if the repository is.
type Service struct {
	repo   Repository
	limits domain.Limits
}

// NewService creates a ledger service backed by the given repository,
// enforcing the given caps on every sent append.
func NewService(repo Repository, limits domain.Limits) *Service {
	return &Service{repo: repo, limits: limits}
}

// Limits returns the caps this ledger enforces.
func (s *Service) Limits() domain.Limits { return s.limits }

// Get returns the contact for an address, or ErrNotFound.
func (s *Service) Get(ctx context.Context, address string) (*domain.Contact, error) {
	return s.repo.GetContact(ctx, domain.NormalizeAddress(address))
}

// RecordSent appends a sent event. The repository performs the cap checks
// and counter updates atomically with the insert, so a concurrent append
// can surface ErrCapExceeded here even after a policy allow.
func (s *Service) RecordSent(ctx context.Context, c domain.Candidate, kind domain.EventType, at time.Time) error {
	e := &domain.OutreachEvent{
		ID:             uuid.New().String(),
		ContactAddress: domain.NormalizeAddress(c.Address),
		Organization:   c.Organization,
		EventType:      kind,
		OccurredAt:     at.UTC(),
		Outcome:        domain.OutcomeSent,
	}
	if err := s.repo.AppendEvent(ctx, e, s.limits); err != nil {
		return fmt.Errorf("record sent %s: %w", e.EventType, err)
	}
	return nil
}

// RecordSkipped appends a skipped event. Skips never consume cap headroom
// and never create the one-initial-per-contact constraint.
func (s *Service) RecordSkipped(ctx context.Context, c domain.Candidate, kind domain.EventType, at time.Time, reason domain.SkipReason) error {
	e := &domain.OutreachEvent{
		ID:             uuid.New().String(),
		ContactAddress: domain.NormalizeAddress(c.Address),
		Organization:   c.Organization,
		EventType:      kind,
		OccurredAt:     at.UTC(),
		Outcome:        domain.OutcomeSkipped,
		SkipReason:     reason,
	}
	if err := s.repo.AppendEvent(ctx, e, s.limits); err != nil {
		return fmt.Errorf("record skipped: %w", err)
	}
	return nil
}

// MarkReplied marks a contact as replied, permanently removing it from
// follow-up eligibility. Idempotent: already-replied contacts are a no-op,
// unknown addresses return ErrNotFound (callers treat this as soft).
func (s *Service) MarkReplied(ctx context.Context, address string) error {
	addr := domain.NormalizeAddress(address)
	if addr == "" {
		return ErrNotFound
	}
	return s.repo.MarkReplied(ctx, addr)
}

// CountSentToday returns the sent count for now's UTC calendar day.
func (s *Service) CountSentToday(ctx context.Context, now time.Time) (int, error) {
	return s.repo.CountSentOnDay(ctx, now.UTC().Format("2006-01-02"))
}

// CountSentByOrg returns the all-time sent count for an organization.
func (s *Service) CountSentByOrg(ctx context.Context, organization string) (int, error) {
	return s.repo.CountSentByOrg(ctx, organization, nil)
}

// FollowupCandidates returns contacts due a follow-up as of the given time,
// oldest last-contact first.
func (s *Service) FollowupCandidates(ctx context.Context, asOf time.Time) ([]domain.Contact, error) {
	return s.repo.FollowupCandidates(ctx, asOf, s.limits.FollowupAfter, s.limits.MaxFollowups)
}

// History returns a contact's full event stream in occurrence order.
func (s *Service) History(ctx context.Context, address string) ([]domain.OutreachEvent, error) {
	return s.repo.EventsByAddress(ctx, domain.NormalizeAddress(address))
}

// Stats returns cumulative counters as of now.
func (s *Service) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	return s.repo.Stats(ctx, now.UTC().Format("2006-01-02"))
}

// ReplayContact rebuilds a contact aggregate from its event stream. It is
// the recovery/audit path: the result must match the incrementally
// maintained record for the same events. Returns nil for an empty stream.
func ReplayContact(address string, events []domain.OutreachEvent) *domain.Contact {
	if len(events) == 0 {
		return nil
	}
	c := &domain.Contact{Address: domain.NormalizeAddress(address)}
	for i := range events {
		e := &events[i]
		if c.Organization == "" {
			c.Organization = e.Organization
		}
		if !e.Sent() {
			continue
		}
		at := e.OccurredAt
		if c.FirstContactedAt == nil {
			first := at
			c.FirstContactedAt = &first
		}
		last := at
		c.LastContactedAt = &last
		if e.EventType == domain.EventFollowup {
			c.FollowupCount++
		}
	}
	return c
}
