package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"maintenance_center/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

var journalColumns = []string{"id", "occurred_at", "type", "machine_id", "user_id", "message", "meta"}

func TestJournalAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewJournalSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertJournalSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "START_REPAIR", "m-1", 5, "started FREE repair", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Append(ctx(t), models.JournalEntry{
		Type:        " start_repair ",
		MachineID:   "m-1",
		UserID:      5,
		Description: "started FREE repair",
		Metadata:    map[string]any{"repairType": "FREE"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestJournalAppend_NullableColumns(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewJournalSQLite(db)
	at := time.Date(2025, 3, 4, 10, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))

	mock.ExpectExec(regexp.QuoteMeta(insertJournalSQL)).
		WithArgs("ev-1", "2025-03-04 15:30:00", "STATUS_CHANGE", nil, nil, "status changed", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Append(ctx(t), models.JournalEntry{
		EventID:     "ev-1",
		OccurredAt:  at,
		Type:        models.JournalStatusChange,
		Description: "status changed",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestJournalAppend_DBError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewJournalSQLite(db)

	mock.ExpectExec("INSERT INTO journal_events").
		WillReturnError(errors.New("down"))

	err = repo.Append(ctx(t), models.JournalEntry{Type: "assign_technician", Description: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestJournalList_NoFilters_And_MetadataParsing(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewJournalSQLite(db)

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	js, _ := json.Marshal(map[string]any{"message": "Machine is locked"})

	rows := sqlmock.NewRows(journalColumns).
		AddRow("1", now, "ACTION_FAILED", "m-1", 3, "start-repair failed", string(js)).
		AddRow("2", now.Add(time.Hour), "STATUS_CHANGE", "m-2", nil, "REPAIRING -> REPAIRED", nil).
		AddRow("3", now.Add(2*time.Hour), "RETURN_TO_BRANCH", "m-3", 3, "returned", "not json")

	mock.ExpectQuery(regexp.QuoteMeta(selectJournalSQL + ` ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), JournalFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3, got %d", len(got))
	}
	if got[0].MachineID != "m-1" || got[0].UserID != 3 {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	b, _ := json.Marshal(got[0].Metadata)
	if string(b) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", b, js)
	}
	if got[1].UserID != 0 || got[1].Metadata != nil {
		t.Fatalf("expected empty user and meta, got %+v", got[1])
	}
	if got[2].Metadata != "not json" {
		t.Fatalf("expected raw metadata kept, got %#v", got[2].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestJournalList_WithFilters(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewJournalSQLite(db)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	query := selectJournalSQL + ` WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? AND machine_id = ? ORDER BY occurred_at ASC`

	rows := sqlmock.NewRows(journalColumns).
		AddRow("2", from, "ACTION_FAILED", "m-7", 1, "b", nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("2025-01-01 11:00:00", "2025-01-01 12:00:00", "ACTION_FAILED", "m-7").
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), JournalFilter{From: from, To: to, Type: " action_failed ", MachineID: "m-7"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "2" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestJournalList_ScanError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewJournalSQLite(db)

	rows := sqlmock.NewRows(journalColumns).
		// occurred_at of the wrong type
		AddRow("x", 123, "ASSIGN_TECHNICIAN", "m-1", 1, "msg", nil)

	mock.ExpectQuery(regexp.QuoteMeta(selectJournalSQL + ` ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	if _, err := repo.List(ctx(t), JournalFilter{}); err == nil {
		t.Fatalf("expected scan error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
