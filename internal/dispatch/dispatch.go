// Package dispatch carries composed messages out of the system. The
// scheduler treats a dispatch failure as a per-candidate outcome, never a
// run-fatal error.
package dispatch

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/compose"
)

// Result describes one delivery attempt. Success false with a nil error
// never happens; failures always carry the cause for logging.
type Result struct {
	Success   bool
	MessageID string
	Error     error
	SentAt    time.Time
}

// Dispatcher delivers one message to one recipient. Implementations
// return an error only for misconfiguration; an undeliverable message is
// a Result with Success false.
type Dispatcher interface {
	Dispatch(ctx context.Context, to string, msg compose.Message) (*Result, error)
}

// DryRun is a dispatcher that delivers nothing and reports every message
// as not sent, so dry-run invocations exercise the full pipeline without
// side effects.
type DryRun struct {
	// Seen collects the would-be deliveries for reporting.
	Seen []Preview
}

// Preview is one message a dry run would have sent.
type Preview struct {
	To      string
	Subject string
}

func (d *DryRun) Dispatch(ctx context.Context, to string, msg compose.Message) (*Result, error) {
	d.Seen = append(d.Seen, Preview{To: to, Subject: msg.Subject})
	return &Result{Success: true, MessageID: "dry-run", SentAt: time.Now()}, nil
}
