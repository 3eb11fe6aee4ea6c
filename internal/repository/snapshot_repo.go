package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"maintenance_center/internal/models"
)

// SnapshotSQLite keeps the last status the refresher saw for each machine,
// so changes made elsewhere survive a restart of the console.
type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

const (
	upsertSnapshotSQL = `
		INSERT INTO machine_snapshots (machine_id, status, approval, seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(machine_id) DO UPDATE SET
			status=excluded.status,
			approval=excluded.approval,
			seen_at=excluded.seen_at
	`

	selectSnapshotsSQL = `SELECT machine_id, status, approval, seen_at FROM machine_snapshots`
)

// SaveAll upserts every snapshot in one transaction.
func (r *SnapshotSQLite) SaveAll(ctx context.Context, snaps []models.MachineSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range snaps {
		seen := s.SeenAt
		if seen.IsZero() {
			seen = time.Now().UTC()
		} else {
			seen = seen.UTC()
		}
		if _, err := tx.ExecContext(ctx, upsertSnapshotSQL, s.MachineID, s.Status, s.Approval, seen); err != nil {
			return fmt.Errorf("save snapshot %q: %w", s.MachineID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	return nil
}

// LoadAll returns the stored snapshots keyed by machine id.
func (r *SnapshotSQLite) LoadAll(ctx context.Context) (map[string]models.MachineSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, selectSnapshotsSQL)
	if err != nil {
		return nil, fmt.Errorf("select snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.MachineSnapshot)
	for rows.Next() {
		var s models.MachineSnapshot
		if err := rows.Scan(&s.MachineID, &s.Status, &s.Approval, &s.SeenAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.SeenAt = s.SeenAt.UTC()
		out[s.MachineID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
