package engine

import (
	"context"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/feed"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// RunFollowups executes the follow-up sweep: contacts with a successful
// initial send, no reply, and an elapsed wait at or past the threshold
// are fed through the normal evaluate, dispatch, append pipeline. The
// sweep shares the run lock, caps and pacing with ordinary runs; a
// follow-up consumes the same daily and organization budget as an
// initial contact.
func (s *Scheduler) RunFollowups(ctx context.Context) (*Report, error) {
	due, err := s.ledger.FollowupCandidates(ctx, s.now())
	if err != nil {
		return newReport(s.now(), s.dryRun), err
	}

	candidates := make([]domain.Candidate, 0, len(due))
	for _, c := range due {
		candidates = append(candidates, domain.Candidate{
			Address:      c.Address,
			Organization: c.Organization,
		})
	}
	logger.Info("follow-up sweep", "due", len(candidates))

	return s.Run(ctx, feed.FromSlice(candidates))
}
