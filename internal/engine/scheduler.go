// Package engine drives outreach runs: it pulls candidates from a feed,
// asks the policy evaluator for a verdict, dispatches allowed sends with
// randomized pacing, and records every outcome in the ledger. A run is
// strictly sequential and exclusive: the advisory run lock makes a second
// concurrent invocation fail fast.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/outreach-engine/internal/compose"
	"github.com/ignite/outreach-engine/internal/dispatch"
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/feed"
	"github.com/ignite/outreach-engine/internal/pkg/distlock"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/ledger"
	"github.com/ignite/outreach-engine/internal/service/policy"
)

// ErrRunInProgress means another run holds the advisory lock. The new
// invocation aborts without touching the ledger.
var ErrRunInProgress = errors.New("outreach run already in progress")

// Scheduler executes one run at a time against the ledger.
type Scheduler struct {
	ledger     *ledger.Service
	composer   compose.Composer
	dispatcher dispatch.Dispatcher
	pacer      Pacer
	lock       distlock.Lock
	window     Window
	now        func() time.Time
	dryRun     bool
}

// Options wires a Scheduler. Ledger, Composer and Dispatcher are
// required. A nil Lock disables run exclusivity (tests), a nil Pacer
// disables spacing, a zero Window is always open and a nil Now uses the
// wall clock.
type Options struct {
	Ledger     *ledger.Service
	Composer   compose.Composer
	Dispatcher dispatch.Dispatcher
	Pacer      Pacer
	Lock       distlock.Lock
	Window     Window
	Now        func() time.Time
	DryRun     bool
}

// New creates a Scheduler from the given options.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		ledger:     opts.Ledger,
		composer:   opts.Composer,
		dispatcher: opts.Dispatcher,
		pacer:      opts.Pacer,
		lock:       opts.Lock,
		window:     opts.Window,
		now:        opts.Now,
		dryRun:     opts.DryRun,
	}
	if s.pacer == nil {
		s.pacer = NoPacer{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run executes one scheduler pass over the feed.
//
// Per-candidate conditions (policy denials, dispatch failures, invalid
// entries) never abort the run. Ledger errors do: the run cannot make
// safe decisions without ledger state, so the first store failure is
// returned immediately. A daily cap denial stops feed consumption; the
// remaining candidates are neither evaluated nor recorded.
//
// Cancellation is honored between candidates and during the pacing
// delay; the current candidate's outcome is always fully recorded before
// the run exits.
func (s *Scheduler) Run(ctx context.Context, f feed.Feed) (*Report, error) {
	started := s.now()
	report := newReport(started, s.dryRun)

	if !s.window.Contains(started) {
		report.OutsideWindow = true
		report.Finished = started
		logger.Info("outside send window, run is a no-op",
			"hour", started.Hour(), "window_start", s.window.Start, "window_end", s.window.End)
		return report, nil
	}

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			return report, err
		}
		if !acquired {
			return report, ErrRunInProgress
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.lock.Release(releaseCtx); err != nil {
				logger.Warn("run lock release failed", "error", err)
			}
		}()
	}

	err := s.consume(ctx, f, report)
	report.Finished = s.now()

	logger.Info("run finished",
		"dry_run", s.dryRun,
		"seen", report.Seen,
		"sent", report.SentTotal(),
		"denied", report.DeniedTotal(),
		"skipped", report.Skipped,
		"invalid", report.Invalid,
	)
	return report, err
}

// overlay is the dry-run view of counters the real run would have
// mutated. It keeps repeated dry runs honest about caps without writing
// anything.
type overlay struct {
	today     int
	orgs      map[string]int
	addresses map[string]bool
}

func (s *Scheduler) consume(ctx context.Context, f feed.Feed, report *Report) error {
	ov := overlay{orgs: make(map[string]int), addresses: make(map[string]bool)}
	pending := false // a successful send happened; pace before the next candidate

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cand, err := f.Next(ctx)
		if err != nil {
			return err
		}
		if cand == nil {
			return nil
		}
		report.Seen++

		if !cand.Valid() {
			if err := s.recordInvalid(ctx, *cand); err != nil {
				return err
			}
			report.Invalid++
			continue
		}
		cand.Address = domain.NormalizeAddress(cand.Address)

		if pending {
			if err := s.pacer.Wait(ctx); err != nil {
				return err
			}
			pending = false
		}

		now := s.now()
		snap, err := s.snapshot(ctx, *cand, now, ov)
		if err != nil {
			return err
		}

		decision := policy.Evaluate(snap, s.ledger.Limits(), now)
		if !decision.Allowed {
			report.Denied[decision.Reason]++
			logger.Info("candidate denied",
				"address", logger.RedactAddress(cand.Address),
				"organization", cand.Organization,
				"reason", decision.Reason,
			)
			if decision.Reason == domain.DenyDailyCapReached {
				logger.Info("daily cap reached, stopping feed consumption")
				return nil
			}
			continue
		}

		sent, err := s.attempt(ctx, *cand, decision.Kind, now, snap.Contact, report)
		if err != nil {
			return err
		}
		if sent {
			if s.dryRun {
				ov.today++
				ov.orgs[cand.Organization]++
				ov.addresses[cand.Address] = true
			} else {
				pending = true
			}
		}
	}
}

// snapshot reads the ledger state the policy decision is made against.
// In dry-run mode the would-have-sent overlay is applied on top.
func (s *Scheduler) snapshot(ctx context.Context, cand domain.Candidate, now time.Time, ov overlay) (policy.Snapshot, error) {
	var snap policy.Snapshot

	contact, err := s.ledger.Get(ctx, cand.Address)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return snap, err
	}
	snap.Contact = contact

	snap.SentToday, err = s.ledger.CountSentToday(ctx, now)
	if err != nil {
		return snap, err
	}
	snap.OrgSent, err = s.ledger.CountSentByOrg(ctx, cand.Organization)
	if err != nil {
		return snap, err
	}

	if s.dryRun {
		snap.SentToday += ov.today
		snap.OrgSent += ov.orgs[cand.Organization]
		if ov.addresses[cand.Address] {
			// The real run would already have sent and re-read a fresh
			// contact; fake the aggregate so the decision matches.
			last := now
			snap.Contact = &domain.Contact{
				Address:          cand.Address,
				Organization:     cand.Organization,
				FirstContactedAt: &last,
				LastContactedAt:  &last,
			}
		}
	}
	return snap, nil
}

// attempt composes, dispatches and records one allowed candidate.
// Returns whether the send succeeded. Only ledger failures are returned
// as errors.
func (s *Scheduler) attempt(ctx context.Context, cand domain.Candidate, kind domain.EventType, now time.Time, contact *domain.Contact, report *Report) (bool, error) {
	msg, err := s.composer.Compose(kind, cand, contact)
	if err != nil {
		// Composer failures count as dispatch failures.
		logger.Warn("compose failed",
			"address", logger.RedactAddress(cand.Address), "error", err)
		return false, s.recordSkip(ctx, cand, kind, now, domain.SkipDispatchFailed, report)
	}

	result, err := s.dispatcher.Dispatch(ctx, cand.Address, msg)
	if err != nil {
		return false, err
	}
	if !result.Success {
		logger.Warn("dispatch failed",
			"address", logger.RedactAddress(cand.Address), "error", result.Error)
		return false, s.recordSkip(ctx, cand, kind, now, domain.SkipDispatchFailed, report)
	}

	if !s.dryRun {
		if err := s.ledger.RecordSent(ctx, cand, kind, now); err != nil {
			if errors.Is(err, ledger.ErrCapExceeded) || errors.Is(err, ledger.ErrDuplicateInitial) {
				// The store refused the append after a successful
				// dispatch. Should not happen under the run lock; keep
				// the run alive and surface it loudly.
				logger.Error("sent event rejected by ledger",
					"address", logger.RedactAddress(cand.Address), "error", err)
				return false, nil
			}
			return false, err
		}
	}

	if kind == domain.EventFollowup {
		report.FollowupsSent++
	} else {
		report.InitialsSent++
	}
	report.Recipients = append(report.Recipients, Recipient{
		Address:      cand.Address,
		Organization: cand.Organization,
		Kind:         kind,
	})
	logger.Info("sent",
		"address", logger.RedactAddress(cand.Address),
		"organization", cand.Organization,
		"kind", kind,
		"dry_run", s.dryRun,
	)
	return true, nil
}

func (s *Scheduler) recordSkip(ctx context.Context, cand domain.Candidate, kind domain.EventType, now time.Time, reason domain.SkipReason, report *Report) error {
	report.Skipped++
	if s.dryRun {
		return nil
	}
	return s.ledger.RecordSkipped(ctx, cand, kind, now, reason)
}

// recordInvalid records a malformed feed entry. Entries without a usable
// address cannot key a ledger event and are logged only.
func (s *Scheduler) recordInvalid(ctx context.Context, cand domain.Candidate) error {
	logger.Warn("invalid candidate skipped",
		"address", logger.RedactAddress(cand.Address),
		"organization", cand.Organization,
	)
	if s.dryRun || !domain.ValidAddress(cand.Address) {
		return nil
	}
	return s.ledger.RecordSkipped(ctx, cand, domain.EventInitial, s.now(), domain.SkipInvalidCandidate)
}
