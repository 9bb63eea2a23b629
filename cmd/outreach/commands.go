package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ignite/outreach-engine/internal/api"
	"github.com/ignite/outreach-engine/internal/engine"
	"github.com/ignite/outreach-engine/internal/notify"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/ledger"
)

func cmdRunOnce(ctx context.Context, args []string, dryRun bool) error {
	configPath, _, err := parseConfigFlag("run-once", args)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := runFeedPass(ctx, a, dryRun)
	if err != nil {
		return err
	}
	a.notifySummary(ctx, report)
	return nil
}

func cmdFollowupsOnly(ctx context.Context, args []string) error {
	configPath, _, err := parseConfigFlag("followups-only", args)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.scheduler(ctx, false)
	if err != nil {
		return err
	}
	report, err := s.RunFollowups(ctx)
	if err != nil {
		return describeRunError(err)
	}
	logReport(report)
	a.notifySummary(ctx, report)
	return nil
}

func cmdRunScheduled(ctx context.Context, args []string) error {
	configPath, _, err := parseConfigFlag("run-scheduled", args)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	c := cron.New(cron.WithLocation(a.loc))
	spec := fmt.Sprintf("0 %d * * *", a.cfg.Schedule.SendHour)
	_, err = c.AddFunc(spec, func() {
		logger.Info("scheduled run triggered", "hour", a.cfg.Schedule.SendHour)
		if err := runDailyPass(ctx, a); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	logger.Info("run-scheduled started",
		"send_hour", a.cfg.Schedule.SendHour, "timezone", a.loc.String())
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("scheduled run did not stop cleanly")
	}
	return nil
}

func cmdStats(ctx context.Context, args []string) error {
	configPath, _, err := parseConfigFlag("stats", args)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.ledger.Stats(ctx, time.Now())
	if err != nil {
		return err
	}
	printStats(stats)
	return nil
}

func cmdMarkReplied(ctx context.Context, args []string) error {
	configPath, rest, err := parseConfigFlag("mark-replied", args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("usage: outreach mark-replied [-config path] <address>")
	}
	address := rest[0]

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	err = a.ledger.MarkReplied(ctx, address)
	if errors.Is(err, ledger.ErrNotFound) {
		// Soft: the operator may paste an address that was never in a
		// run. Say so and exit clean.
		fmt.Printf("no contact on record for %s, nothing to do\n", address)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s marked replied, no further contact will be made\n", address)
	return nil
}

func cmdServe(ctx context.Context, args []string) error {
	configPath, _, err := parseConfigFlag("serve", args)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	srv := api.NewServer(a.ledger, a.cfg.API.Host, a.cfg.API.Port)
	return srv.ListenAndServe(ctx)
}

// runFeedPass executes one scheduler pass over the configured feed.
func runFeedPass(ctx context.Context, a *app, dryRun bool) (*engine.Report, error) {
	f, closer, err := a.buildFeed()
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	s, err := a.scheduler(ctx, dryRun)
	if err != nil {
		return nil, err
	}
	report, err := s.Run(ctx, f)
	if err != nil {
		return nil, describeRunError(err)
	}
	logReport(report)
	return report, nil
}

// runDailyPass is one scheduled tick: the feed pass, then the follow-up
// sweep, then a single combined summary.
func runDailyPass(ctx context.Context, a *app) error {
	report, err := runFeedPass(ctx, a, false)
	if err != nil {
		return err
	}
	if report.OutsideWindow {
		return nil
	}

	s, err := a.scheduler(ctx, false)
	if err != nil {
		return err
	}
	sweep, err := s.RunFollowups(ctx)
	if err != nil {
		return describeRunError(err)
	}
	logReport(sweep)

	report.Seen += sweep.Seen
	report.FollowupsSent += sweep.FollowupsSent
	report.Skipped += sweep.Skipped
	report.Invalid += sweep.Invalid
	for reason, n := range sweep.Denied {
		report.Denied[reason] += n
	}
	report.Recipients = append(report.Recipients, sweep.Recipients...)

	a.notifySummary(ctx, report)
	return nil
}

func describeRunError(err error) error {
	if errors.Is(err, engine.ErrRunInProgress) {
		return fmt.Errorf("another run holds the lock, aborting: %w", err)
	}
	return err
}

// notifySummary sends the post-run summary when notifications are
// enabled. Failures are logged inside the notifier, never returned.
func (a *app) notifySummary(ctx context.Context, report *engine.Report) {
	if !a.cfg.Notifications.Enabled || report == nil || report.DryRun {
		return
	}
	d, err := a.dispatcher(ctx, false)
	if err != nil {
		logger.Warn("summary dispatcher unavailable", "error", err)
		return
	}
	stats, err := a.ledger.Stats(ctx, time.Now())
	if err != nil {
		logger.Warn("summary stats unavailable", "error", err)
		stats = nil
	}
	notify.New(a.composer, d, a.cfg.Notifications.Recipient).
		RunSummary(ctx, report, stats)
}

func printStats(s *ledger.Stats) {
	fmt.Printf(`Outreach ledger stats

  Total sent            : %d
  Initials sent         : %d
  Follow-ups sent       : %d
  Skipped               : %d
  Sent today            : %d
  Replies received      : %d
  Reply rate            : %.1f%%
  Organizations         : %d
  Contacts tracked      : %d
`,
		s.TotalSent, s.InitialsSent, s.FollowupsSent, s.TotalSkipped,
		s.SentToday, s.TotalReplies, s.ReplyRate*100, s.OrgsContacted,
		s.ContactsTracked)
}
