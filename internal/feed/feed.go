// Package feed defines the target feed contract and its adapters.
//
// A feed produces a finite, ordered sequence of candidates. Order matters:
// it is the scheduler's tie-break (first discovered, first evaluated).
// Feeds are restartable by construction: build a new feed value to replay
// the sequence. The engine treats candidate attributes as opaque
// pass-through data for message composition and never reads them for
// policy.
package feed

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Feed yields candidates one at a time. Next returns (nil, nil) once the
// sequence is exhausted.
type Feed interface {
	Next(ctx context.Context) (*domain.Candidate, error)
}

// Slice is a fixed in-memory feed, used by tests and the sweeper.
type Slice struct {
	candidates []domain.Candidate
	pos        int
}

// FromSlice builds a feed over the given candidates in order.
func FromSlice(candidates []domain.Candidate) *Slice {
	return &Slice{candidates: candidates}
}

func (s *Slice) Next(ctx context.Context) (*domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.candidates) {
		return nil, nil
	}
	c := s.candidates[s.pos]
	s.pos++
	return &c, nil
}
