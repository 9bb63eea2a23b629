// Package memory provides an in-memory ledger repository with the same
// atomicity guarantees as the Postgres implementation. It backs unit tests
// and keeps the engine exercisable without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/ledger"
)

// LedgerRepo is an in-memory implementation of ledger.Repository.
// All operations take a single mutex, which makes every append atomic with
// respect to the counters it guards.
type LedgerRepo struct {
	mu       sync.Mutex
	contacts map[string]*domain.Contact        // keyed by normalized address
	events   map[string][]domain.OutreachEvent // keyed by normalized address
	daily    map[string]int                    // keyed by UTC day
	orgs     map[string]int                    // sent count keyed by organization
}

// NewLedgerRepo creates an empty in-memory ledger.
func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{
		contacts: make(map[string]*domain.Contact),
		events:   make(map[string][]domain.OutreachEvent),
		daily:    make(map[string]int),
		orgs:     make(map[string]int),
	}
}

func (r *LedgerRepo) GetContact(_ context.Context, address string) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[address]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *LedgerRepo) AppendEvent(_ context.Context, e *domain.OutreachEvent, limits domain.Limits) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.contacts[e.ContactAddress]

	if e.Sent() {
		if r.daily[e.Day()] >= limits.DailyCap {
			return ledger.ErrCapExceeded
		}
		if r.orgs[e.Organization] >= limits.OrgCap {
			return ledger.ErrCapExceeded
		}
		if e.EventType == domain.EventInitial && c != nil && c.InitialSent() {
			return ledger.ErrDuplicateInitial
		}
	}

	if c == nil {
		c = &domain.Contact{Address: e.ContactAddress, Organization: e.Organization}
		r.contacts[e.ContactAddress] = c
	}

	if e.Sent() {
		r.daily[e.Day()]++
		r.orgs[e.Organization]++
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

	r.events[e.ContactAddress] = append(r.events[e.ContactAddress], *e)
	return nil
}

func (r *LedgerRepo) CountSentByOrg(_ context.Context, organization string, since *time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if since == nil {
		return r.orgs[organization], nil
	}
	n := 0
	for _, evs := range r.events {
		for i := range evs {
			if evs[i].Organization == organization && evs[i].Sent() && !evs[i].OccurredAt.Before(*since) {
				n++
			}
		}
	}
	return n, nil
}

func (r *LedgerRepo) CountSentOnDay(_ context.Context, day string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.daily[day], nil
}

func (r *LedgerRepo) MarkReplied(_ context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[address]
	if !ok {
		return ledger.ErrNotFound
	}
	c.Replied = true
	return nil
}

func (r *LedgerRepo) FollowupCandidates(_ context.Context, asOf time.Time, threshold time.Duration, maxFollowups int) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := asOf.Add(-threshold)
	var out []domain.Contact
	for _, c := range r.contacts {
		if c.Replied || !c.InitialSent() || c.FollowupCount >= maxFollowups {
			continue
		}
		if c.LastContactedAt != nil && !c.LastContactedAt.After(cutoff) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastContactedAt.Before(*out[j].LastContactedAt)
	})
	return out, nil
}

func (r *LedgerRepo) EventsByAddress(_ context.Context, address string) ([]domain.OutreachEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.events[address]
	out := make([]domain.OutreachEvent, len(evs))
	copy(out, evs)
	return out, nil
}

func (r *LedgerRepo) Stats(_ context.Context, today string) (*ledger.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &ledger.Stats{
		SentToday:       r.daily[today],
		ContactsTracked: len(r.contacts),
	}
	orgs := make(map[string]struct{})
	for _, evs := range r.events {
		for i := range evs {
			e := &evs[i]
			if !e.Sent() {
				st.TotalSkipped++
				continue
			}
			st.TotalSent++
			if e.EventType == domain.EventInitial {
				st.InitialsSent++
			} else {
				st.FollowupsSent++
			}
			orgs[e.Organization] = struct{}{}
		}
	}
	for _, c := range r.contacts {
		if c.Replied {
			st.TotalReplies++
		}
	}
	st.OrgsContacted = len(orgs)
	if st.TotalSent > 0 {
		st.ReplyRate = float64(st.TotalReplies) / float64(st.TotalSent)
	}
	return st, nil
}
