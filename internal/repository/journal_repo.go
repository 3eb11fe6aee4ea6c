package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"maintenance_center/internal/models"

	"github.com/google/uuid"
)

type JournalSQLite struct {
	db *sql.DB
}

func NewJournalSQLite(db *sql.DB) *JournalSQLite { return &JournalSQLite{db: db} }

const (
	journalTimeLayout = "2006-01-02 15:04:05"

	insertJournalSQL = `
		INSERT INTO journal_events (id, occurred_at, type, machine_id, user_id, message, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	selectJournalSQL = `SELECT id, occurred_at, type, machine_id, user_id, message, meta FROM journal_events`
)

// Append inserts a journal entry, filling EventID and OccurredAt when empty.
func (r *JournalSQLite) Append(ctx context.Context, e models.JournalEntry) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	var machineID *string
	if e.MachineID != "" {
		machineID = &e.MachineID
	}
	var userID *int
	if e.UserID != 0 {
		userID = &e.UserID
	}

	_, err := r.db.ExecContext(ctx, insertJournalSQL,
		e.EventID,
		e.OccurredAt.Format(journalTimeLayout),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		machineID,
		userID,
		e.Description,
		metaPtr,
	)
	return err
}

// List returns entries matching f, oldest first. From and To are inclusive.
func (r *JournalSQLite) List(ctx context.Context, f JournalFilter) ([]models.JournalEntry, error) {
	var (
		conds []string
		args  []any
	)

	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC().Format(journalTimeLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.To.UTC().Format(journalTimeLayout))
	}
	if typ := strings.ToUpper(strings.TrimSpace(f.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if id := strings.TrimSpace(f.MachineID); id != "" {
		conds = append(conds, "machine_id = ?")
		args = append(args, id)
	}

	q := selectJournalSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.JournalEntry, 0, 64)
	for rows.Next() {
		var (
			e         models.JournalEntry
			machineID sql.NullString
			userID    sql.NullInt64
			metaStr   sql.NullString
		)
		if err := rows.Scan(&e.EventID, &e.OccurredAt, &e.Type, &machineID, &userID, &e.Description, &metaStr); err != nil {
			return nil, err
		}
		e.OccurredAt = e.OccurredAt.UTC()
		e.MachineID = machineID.String
		e.UserID = int(userID.Int64)

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				e.Metadata = v
			} else {
				e.Metadata = metaStr.String
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
