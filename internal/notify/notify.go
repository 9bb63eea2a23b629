// Package notify sends the operator a summary message after each run.
// Notification failures are logged and swallowed, a run's outcome never
// depends on the summary going out.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/outreach-engine/internal/compose"
	"github.com/ignite/outreach-engine/internal/dispatch"
	"github.com/ignite/outreach-engine/internal/engine"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/service/ledger"
)

// Notifier delivers run summaries to a single operator address.
type Notifier struct {
	composer   *compose.Liquid
	dispatcher dispatch.Dispatcher
	recipient  string
}

// New creates a notifier. A nil return means notifications are disabled.
func New(composer *compose.Liquid, dispatcher dispatch.Dispatcher, recipient string) *Notifier {
	if recipient == "" {
		return nil
	}
	return &Notifier{composer: composer, dispatcher: dispatcher, recipient: recipient}
}

// RunSummary sends the end-of-run report. Safe to call on a nil
// notifier.
func (n *Notifier) RunSummary(ctx context.Context, report *engine.Report, stats *ledger.Stats) {
	if n == nil || report == nil || report.OutsideWindow {
		return
	}

	msg, err := n.composer.Summary(summaryBindings(report, stats))
	if err != nil {
		logger.Warn("summary compose failed", "error", err)
		return
	}

	result, err := n.dispatcher.Dispatch(ctx, n.recipient, msg)
	if err != nil || !result.Success {
		if err == nil {
			err = result.Error
		}
		logger.Warn("summary dispatch failed",
			"recipient", logger.RedactAddress(n.recipient), "error", err)
		return
	}
	logger.Info("run summary sent", "recipient", logger.RedactAddress(n.recipient))
}

func summaryBindings(report *engine.Report, stats *ledger.Stats) map[string]interface{} {
	b := map[string]interface{}{
		"date":           report.Started.UTC().Format("2006-01-02"),
		"seen":           report.Seen,
		"sent_total":     report.SentTotal(),
		"initials_sent":  report.InitialsSent,
		"followups_sent": report.FollowupsSent,
		"denied":         report.DeniedTotal(),
		"skipped":        report.Skipped + report.Invalid,
		"recipients":     recipientLines(report),
	}
	if stats != nil {
		b["total_sent"] = stats.TotalSent
		b["total_replies"] = stats.TotalReplies
		b["reply_rate"] = fmt.Sprintf("%.1f%%", stats.ReplyRate*100)
		b["organizations_contacted"] = stats.OrgsContacted
	}
	return b
}

func recipientLines(report *engine.Report) string {
	if len(report.Recipients) == 0 {
		return ""
	}
	lines := make([]string, 0, len(report.Recipients))
	for _, r := range report.Recipients {
		lines = append(lines, fmt.Sprintf("  %s -> %s (%s)", r.Organization, r.Address, r.Kind))
	}
	return strings.Join(lines, "\n")
}
