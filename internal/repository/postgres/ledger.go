// Package postgres implements the ledger repository against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/ledger"
)

// LedgerRepo implements ledger.Repository against PostgreSQL.
type LedgerRepo struct{ db *sql.DB }

// NewLedgerRepo creates a Postgres-backed ledger repository.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// storeErr tags a low-level database failure as ErrStoreUnavailable so
// callers can tell an unusable store apart from the domain sentinels.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ledger.ErrStoreUnavailable, err)
}

func (r *LedgerRepo) GetContact(ctx context.Context, address string) (*domain.Contact, error) {
	var c domain.Contact
	err := r.db.QueryRowContext(ctx, `
		SELECT address, organization, first_contacted_at, last_contacted_at, followup_count, replied
		FROM outreach_contacts
		WHERE address = $1
	`, address).Scan(&c.Address, &c.Organization, &c.FirstContactedAt, &c.LastContactedAt, &c.FollowupCount, &c.Replied)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get contact", err)
	}
	return &c, nil
}

// AppendEvent records one event. For sent outcomes the daily and org
// counters are checked and incremented in the same transaction as the
// insert and the contact upsert; if either counter is at its cap the whole
// transaction rolls back and ErrCapExceeded is returned, leaving no trace.
func (r *LedgerRepo) AppendEvent(ctx context.Context, e *domain.OutreachEvent, limits domain.Limits) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin append", err)
	}
	defer tx.Rollback()

	if e.Sent() {
		if err := r.appendSent(ctx, tx, e, limits); err != nil {
			return err
		}
	} else {
		if err := r.appendSkipped(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit append", err)
	}
	return nil
}

func (r *LedgerRepo) appendSent(ctx context.Context, tx *sql.Tx, e *domain.OutreachEvent, limits domain.Limits) error {
	if limits.DailyCap <= 0 || limits.OrgCap <= 0 {
		return ledger.ErrCapExceeded
	}

	// Cap-guarded counter increments. The conditional upsert yields no row
	// when the counter is already at the cap, which aborts the append
	// before anything else is written.
	var sent int
	err := tx.QueryRowContext(ctx, `
		INSERT INTO outreach_daily_counters (day, sent)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET sent = outreach_daily_counters.sent + 1
		WHERE outreach_daily_counters.sent < $2
		RETURNING sent
	`, e.Day(), limits.DailyCap).Scan(&sent)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrCapExceeded
	}
	if err != nil {
		return storeErr("daily counter", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO outreach_org_counters (organization, sent)
		VALUES ($1, 1)
		ON CONFLICT (organization) DO UPDATE SET sent = outreach_org_counters.sent + 1
		WHERE outreach_org_counters.sent < $2
		RETURNING sent
	`, e.Organization, limits.OrgCap).Scan(&sent)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrCapExceeded
	}
	if err != nil {
		return storeErr("org counter", err)
	}

	if err := insertEvent(ctx, tx, e); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outreach_contacts (address, organization, first_contacted_at, last_contacted_at, followup_count)
		VALUES ($1, $2, $3, $3, CASE WHEN $4 = 'followup' THEN 1 ELSE 0 END)
		ON CONFLICT (address) DO UPDATE SET
			first_contacted_at = COALESCE(outreach_contacts.first_contacted_at, EXCLUDED.first_contacted_at),
			last_contacted_at  = EXCLUDED.last_contacted_at,
			followup_count     = outreach_contacts.followup_count + CASE WHEN $4 = 'followup' THEN 1 ELSE 0 END,
			updated_at         = NOW()
	`, e.ContactAddress, e.Organization, e.OccurredAt, string(e.EventType))
	if err != nil {
		return storeErr("upsert contact", err)
	}
	return nil
}

func (r *LedgerRepo) appendSkipped(ctx context.Context, tx *sql.Tx, e *domain.OutreachEvent) error {
	if err := insertEvent(ctx, tx, e); err != nil {
		return err
	}
	// A skip materializes the contact row without touching send state, so
	// the address stays eligible on the next run.
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outreach_contacts (address, organization)
		VALUES ($1, $2)
		ON CONFLICT (address) DO NOTHING
	`, e.ContactAddress, e.Organization)
	if err != nil {
		return storeErr("ensure contact", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, e *domain.OutreachEvent) error {
	var skipReason sql.NullString
	if e.SkipReason != "" {
		skipReason = sql.NullString{String: string(e.SkipReason), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outreach_events (id, contact_address, organization, event_type, occurred_at, occurred_on, outcome, skip_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.ContactAddress, e.Organization, string(e.EventType), e.OccurredAt, e.Day(), string(e.Outcome), skipReason)
	if err != nil {
		var pqErr *pq.Error
		// 23505 on the one-initial partial index means a second initial.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ledger.ErrDuplicateInitial
		}
		return storeErr("insert event", err)
	}
	return nil
}

func (r *LedgerRepo) CountSentByOrg(ctx context.Context, organization string, since *time.Time) (int, error) {
	if since != nil {
		var n int
		err := r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM outreach_events
			WHERE organization = $1 AND outcome = 'sent' AND occurred_at >= $2
		`, organization, *since).Scan(&n)
		if err != nil {
			return 0, storeErr("count sent by org since", err)
		}
		return n, nil
	}

	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(sent, 0) FROM outreach_org_counters WHERE organization = $1
	`, organization).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("count sent by org", err)
	}
	return n, nil
}

func (r *LedgerRepo) CountSentOnDay(ctx context.Context, day string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(sent, 0) FROM outreach_daily_counters WHERE day = $1
	`, day).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("count sent on day", err)
	}
	return n, nil
}

func (r *LedgerRepo) MarkReplied(ctx context.Context, address string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_contacts SET replied = TRUE, updated_at = NOW() WHERE address = $1
	`, address)
	if err != nil {
		return storeErr("mark replied", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *LedgerRepo) FollowupCandidates(ctx context.Context, asOf time.Time, threshold time.Duration, maxFollowups int) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT address, organization, first_contacted_at, last_contacted_at, followup_count, replied
		FROM outreach_contacts
		WHERE replied = FALSE
		  AND first_contacted_at IS NOT NULL
		  AND followup_count < $1
		  AND last_contacted_at <= $2
		ORDER BY last_contacted_at ASC
	`, maxFollowups, asOf.Add(-threshold))
	if err != nil {
		return nil, storeErr("followup candidates", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.Address, &c.Organization, &c.FirstContactedAt, &c.LastContactedAt, &c.FollowupCount, &c.Replied); err != nil {
			return nil, storeErr("scan contact", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) EventsByAddress(ctx context.Context, address string) ([]domain.OutreachEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, contact_address, organization, event_type, occurred_at, outcome, COALESCE(skip_reason, '')
		FROM outreach_events
		WHERE contact_address = $1
		ORDER BY occurred_at ASC
	`, address)
	if err != nil {
		return nil, storeErr("events by address", err)
	}
	defer rows.Close()

	var out []domain.OutreachEvent
	for rows.Next() {
		var e domain.OutreachEvent
		var eventType, outcome, skipReason string
		if err := rows.Scan(&e.ID, &e.ContactAddress, &e.Organization, &eventType, &e.OccurredAt, &outcome, &skipReason); err != nil {
			return nil, storeErr("scan event", err)
		}
		e.EventType = domain.EventType(eventType)
		e.Outcome = domain.Outcome(outcome)
		e.SkipReason = domain.SkipReason(skipReason)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) Stats(ctx context.Context, today string) (*ledger.Stats, error) {
	st := &ledger.Stats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE outcome = 'sent'),
			COUNT(*) FILTER (WHERE outcome = 'sent' AND event_type = 'initial'),
			COUNT(*) FILTER (WHERE outcome = 'sent' AND event_type = 'followup'),
			COUNT(*) FILTER (WHERE outcome = 'skipped'),
			COUNT(DISTINCT organization) FILTER (WHERE outcome = 'sent')
		FROM outreach_events
	`).Scan(&st.TotalSent, &st.InitialsSent, &st.FollowupsSent, &st.TotalSkipped, &st.OrgsContacted)
	if err != nil {
		return nil, storeErr("event stats", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE replied) FROM outreach_contacts
	`).Scan(&st.ContactsTracked, &st.TotalReplies)
	if err != nil {
		return nil, storeErr("contact stats", err)
	}

	st.SentToday, err = r.CountSentOnDay(ctx, today)
	if err != nil {
		return nil, err
	}

	if st.TotalSent > 0 {
		st.ReplyRate = float64(st.TotalReplies) / float64(st.TotalSent)
	}
	return st, nil
}
