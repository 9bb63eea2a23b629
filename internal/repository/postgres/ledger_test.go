package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/ledger"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func sentEvent() *domain.OutreachEvent {
	return &domain.OutreachEvent{
		ID:             "11111111-1111-1111-1111-111111111111",
		ContactAddress: "jane@example.com",
		Organization:   "example",
		EventType:      domain.EventInitial,
		OccurredAt:     time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
		Outcome:        domain.OutcomeSent,
	}
}

func TestGetContact(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLedgerRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"address", "organization", "first_contacted_at", "last_contacted_at", "followup_count", "replied"}).
		AddRow("jane@example.com", "example", now, now, 0, false)
	mock.ExpectQuery("SELECT address, organization").
		WithArgs("jane@example.com").
		WillReturnRows(rows)

	c, err := repo.GetContact(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if c.Address != "jane@example.com" || c.Organization != "example" {
		t.Errorf("contact = %+v", c)
	}

	mock.ExpectQuery("SELECT address, organization").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetContact(context.Background(), "ghost@example.com"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("missing contact err = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetContactStoreFailure(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLedgerRepo(db)

	mock.ExpectQuery("SELECT address, organization").
		WithArgs("jane@example.com").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetContact(context.Background(), "jane@example.com")
	if !errors.Is(err, ledger.ErrStoreUnavailable) {
		t.Errorf("driver failure err = %v, want ErrStoreUnavailable", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAppendSentHappyPath(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLedgerRepo(db)
	e := sentEvent()
	limits := domain.DefaultLimits()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO outreach_daily_counters").
		WithArgs("2026-08-10", limits.DailyCap).
		WillReturnRows(sqlmock.NewRows([]string{"sent"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO outreach_org_counters").
		WithArgs("example", limits.OrgCap).
		WillReturnRows(sqlmock.NewRows([]string{"sent"}).AddRow(1))
	mock.ExpectExec("INSERT INTO outreach_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outreach_contacts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.AppendEvent(context.Background(), e, limits); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAppendSentDailyCapExceededRollsBack(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLedgerRepo(db)
	e := sentEvent()
	limits := domain.DefaultLimits()

	mock.ExpectBegin()
	// At the cap, the conditional upsert yields no row: nothing else may
	// be written and the transaction must roll back.
	mock.ExpectQuery("INSERT INTO outreach_daily_counters").
		WithArgs("2026-08-10", limits.DailyCap).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.AppendEvent(context.Background(), e, limits)
	if !errors.Is(err, ledger.ErrCapExceeded) {
		t.Fatalf("err = %v, want ErrCapExceeded", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAppendSentOrgCapExceededRollsBack(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLedgerRepo(db)
	e := sentEvent()
	limits := domain.DefaultLimits()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO outreach_daily_counters").
		WillReturnRows(sqlmock.NewRows([]string{"sent"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO outreach_org_counters").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.AppendEvent(context.Background(), e, limits)
	if !errors.Is(err, ledger.ErrCapExceeded) {
		t.Fatalf("err = %v, want ErrCapExceeded", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAppendSkippedTouchesNoCounters(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLedgerRepo(db)

	e := sentEvent()
	e.Outcome = domain.OutcomeSkipped
	e.SkipReason = domain.SkipDispatchFailed

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outreach_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outreach_contacts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.AppendEvent(context.Background(), e, domain.DefaultLimits()); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMarkReplied(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLedgerRepo(db)

	mock.ExpectExec("UPDATE outreach_contacts SET replied").
		WithArgs("jane@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.MarkReplied(context.Background(), "jane@example.com"); err != nil {
		t.Fatalf("MarkReplied: %v", err)
	}

	mock.ExpectExec("UPDATE outreach_contacts SET replied").
		WithArgs("ghost@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.MarkReplied(context.Background(), "ghost@example.com"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("unknown address err = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCountSentOnDayMissingRowIsZero(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLedgerRepo(db)

	mock.ExpectQuery("SELECT COALESCE\\(sent, 0\\) FROM outreach_daily_counters").
		WithArgs("2026-08-10").
		WillReturnError(sql.ErrNoRows)

	n, err := repo.CountSentOnDay(context.Background(), "2026-08-10")
	if err != nil {
		t.Fatalf("CountSentOnDay: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
