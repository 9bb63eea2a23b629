// verify-ledger audits the outreach ledger: the materialized contact
// aggregates and the daily/organization counters must be reproducible
// from the append-only event stream.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/ledger"
)

type checkResult struct {
	Name    string
	Passed  bool
	Detail  string
	Elapsed time.Duration
}

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "FATAL: DATABASE_URL is required")
		os.Exit(1)
	}

	fmt.Println("=========================================================")
	fmt.Println(" Outreach Ledger Verification")
	fmt.Println("=========================================================")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot connect to database: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Database connection established")
	fmt.Println()

	events, err := loadEvents(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d events across %d contacts\n\n", countEvents(events), len(events))

	var results []checkResult
	results = append(results, checkContactsMatchReplay(ctx, db, events))
	results = append(results, checkNoOrphanContacts(ctx, db, events))
	results = append(results, checkDailyCounters(ctx, db, events))
	results = append(results, checkOrgCounters(ctx, db, events))
	results = append(results, checkSingleInitialPerContact(events))
	results = append(results, checkSkipReasonPairing(ctx, db))

	fmt.Println()
	fmt.Println("=========================================================")
	fmt.Println(" VERIFICATION REPORT")
	fmt.Println("=========================================================")

	allPassed := true
	for i, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("%d. [%s] %s (%s)\n", i+1, status, r.Name, r.Elapsed.Round(time.Millisecond))
		if r.Detail != "" {
			fmt.Printf("       %s\n", r.Detail)
		}
	}

	fmt.Println("=========================================================")
	if !allPassed {
		fmt.Println("RESULT: FAILED")
		os.Exit(1)
	}
	fmt.Println("RESULT: ALL CHECKS PASSED")
}

// loadEvents pulls the full event stream grouped by contact, in
// occurrence order within each contact.
func loadEvents(ctx context.Context, db *sql.DB) (map[string][]domain.OutreachEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, contact_address, organization, event_type, occurred_at, outcome, COALESCE(skip_reason, '')
		FROM outreach_events
		ORDER BY contact_address, occurred_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byAddress := make(map[string][]domain.OutreachEvent)
	for rows.Next() {
		var e domain.OutreachEvent
		if err := rows.Scan(&e.ID, &e.ContactAddress, &e.Organization, &e.EventType,
			&e.OccurredAt, &e.Outcome, &e.SkipReason); err != nil {
			return nil, err
		}
		byAddress[e.ContactAddress] = append(byAddress[e.ContactAddress], e)
	}
	return byAddress, rows.Err()
}

func countEvents(events map[string][]domain.OutreachEvent) int {
	n := 0
	for _, es := range events {
		n += len(es)
	}
	return n
}

// checkContactsMatchReplay rebuilds every contact from its events and
// compares the result against the materialized row. The replied flag is
// excluded: replies are not events, so replay cannot reconstruct it.
func checkContactsMatchReplay(ctx context.Context, db *sql.DB, events map[string][]domain.OutreachEvent) checkResult {
	start := time.Now()
	mismatches := 0
	detail := ""

	for address, es := range events {
		replayed := ledger.ReplayContact(address, es)

		var stored domain.Contact
		err := db.QueryRowContext(ctx, `
			SELECT address, organization, first_contacted_at, last_contacted_at, followup_count
			FROM outreach_contacts WHERE address = $1`, address).
			Scan(&stored.Address, &stored.Organization, &stored.FirstContactedAt,
				&stored.LastContactedAt, &stored.FollowupCount)
		if err != nil {
			mismatches++
			if detail == "" {
				detail = fmt.Sprintf("missing contact row for %s: %v", address, err)
			}
			continue
		}

		if !sameContact(replayed, &stored) {
			mismatches++
			if detail == "" {
				detail = fmt.Sprintf("replay mismatch for %s", address)
			}
		}
	}

	return checkResult{
		Name:    fmt.Sprintf("contact aggregates reproducible from events (%d contacts)", len(events)),
		Passed:  mismatches == 0,
		Detail:  detail,
		Elapsed: time.Since(start),
	}
}

func sameContact(a, b *domain.Contact) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Address == b.Address &&
		a.Organization == b.Organization &&
		sameTime(a.FirstContactedAt, b.FirstContactedAt) &&
		sameTime(a.LastContactedAt, b.LastContactedAt) &&
		a.FollowupCount == b.FollowupCount
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UTC().Equal(b.UTC())
}

// checkNoOrphanContacts verifies no contact row exists without events.
func checkNoOrphanContacts(ctx context.Context, db *sql.DB, events map[string][]domain.OutreachEvent) checkResult {
	start := time.Now()
	rows, err := db.QueryContext(ctx, `SELECT address FROM outreach_contacts`)
	if err != nil {
		return checkResult{Name: "no orphan contacts", Detail: err.Error(), Elapsed: time.Since(start)}
	}
	defer rows.Close()

	orphans := 0
	detail := ""
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return checkResult{Name: "no orphan contacts", Detail: err.Error(), Elapsed: time.Since(start)}
		}
		if _, ok := events[address]; !ok {
			orphans++
			if detail == "" {
				detail = fmt.Sprintf("contact %s has no events", address)
			}
		}
	}
	return checkResult{
		Name:    "no orphan contacts",
		Passed:  orphans == 0,
		Detail:  detail,
		Elapsed: time.Since(start),
	}
}

// checkDailyCounters compares the daily counter table against per-day
// sent event counts.
func checkDailyCounters(ctx context.Context, db *sql.DB, events map[string][]domain.OutreachEvent) checkResult {
	start := time.Now()

	expected := make(map[string]int)
	for _, es := range events {
		for i := range es {
			if es[i].Sent() {
				expected[es[i].Day()]++
			}
		}
	}

	stored := make(map[string]int)
	rows, err := db.QueryContext(ctx, `SELECT to_char(day, 'YYYY-MM-DD'), sent FROM outreach_daily_counters`)
	if err != nil {
		return checkResult{Name: "daily counters", Detail: err.Error(), Elapsed: time.Since(start)}
	}
	defer rows.Close()
	for rows.Next() {
		var day string
		var sent int
		if err := rows.Scan(&day, &sent); err != nil {
			return checkResult{Name: "daily counters", Detail: err.Error(), Elapsed: time.Since(start)}
		}
		stored[day] = sent
	}

	detail := compareCounters(expected, stored)
	return checkResult{
		Name:    fmt.Sprintf("daily counters match events (%d days)", len(expected)),
		Passed:  detail == "",
		Detail:  detail,
		Elapsed: time.Since(start),
	}
}

// checkOrgCounters compares the organization counter table against
// per-organization sent event counts.
func checkOrgCounters(ctx context.Context, db *sql.DB, events map[string][]domain.OutreachEvent) checkResult {
	start := time.Now()

	expected := make(map[string]int)
	for _, es := range events {
		for i := range es {
			if es[i].Sent() {
				expected[es[i].Organization]++
			}
		}
	}

	stored := make(map[string]int)
	rows, err := db.QueryContext(ctx, `SELECT organization, sent FROM outreach_org_counters`)
	if err != nil {
		return checkResult{Name: "organization counters", Detail: err.Error(), Elapsed: time.Since(start)}
	}
	defer rows.Close()
	for rows.Next() {
		var org string
		var sent int
		if err := rows.Scan(&org, &sent); err != nil {
			return checkResult{Name: "organization counters", Detail: err.Error(), Elapsed: time.Since(start)}
		}
		stored[org] = sent
	}

	detail := compareCounters(expected, stored)
	return checkResult{
		Name:    fmt.Sprintf("organization counters match events (%d orgs)", len(expected)),
		Passed:  detail == "",
		Detail:  detail,
		Elapsed: time.Since(start),
	}
}

func compareCounters(expected, stored map[string]int) string {
	for key, want := range expected {
		if got := stored[key]; got != want {
			return fmt.Sprintf("%s: counter %d, events %d", key, got, want)
		}
	}
	for key, got := range stored {
		if _, ok := expected[key]; !ok && got != 0 {
			return fmt.Sprintf("%s: counter %d with no events", key, got)
		}
	}
	return ""
}

// checkSingleInitialPerContact scans the stream for a second initial
// sent event on any contact.
func checkSingleInitialPerContact(events map[string][]domain.OutreachEvent) checkResult {
	start := time.Now()
	detail := ""
	for address, es := range events {
		initials := 0
		for i := range es {
			if es[i].EventType == domain.EventInitial && es[i].Sent() {
				initials++
			}
		}
		if initials > 1 {
			detail = fmt.Sprintf("%s has %d initial sent events", address, initials)
			break
		}
	}
	return checkResult{
		Name:    "at most one initial sent event per contact",
		Passed:  detail == "",
		Detail:  detail,
		Elapsed: time.Since(start),
	}
}

// checkSkipReasonPairing verifies the outcome/skip_reason pairing the
// schema CHECK should already enforce.
func checkSkipReasonPairing(ctx context.Context, db *sql.DB) checkResult {
	start := time.Now()
	var bad int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM outreach_events
		WHERE (outcome = 'sent' AND skip_reason IS NOT NULL)
		   OR (outcome = 'skipped' AND skip_reason IS NULL)`).Scan(&bad)
	detail := ""
	if err != nil {
		detail = err.Error()
	} else if bad > 0 {
		detail = fmt.Sprintf("%d events with inconsistent outcome/skip_reason", bad)
	}
	return checkResult{
		Name:    "skip_reason present iff outcome is skipped",
		Passed:  err == nil && bad == 0,
		Detail:  detail,
		Elapsed: time.Since(start),
	}
}
