package repository

import (
	"context"
	"database/sql"
	"time"

	"maintenance_center/internal/models"
)

type Authorization interface {
	Create(username, displayName, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// JournalFilter narrows a journal listing. Zero values are ignored.
type JournalFilter struct {
	From      time.Time
	To        time.Time
	Type      string
	MachineID string
}

type JournalRepo interface {
	Append(ctx context.Context, e models.JournalEntry) error
	List(ctx context.Context, f JournalFilter) ([]models.JournalEntry, error)
}

type SnapshotRepo interface {
	SaveAll(ctx context.Context, snaps []models.MachineSnapshot) error
	LoadAll(ctx context.Context) (map[string]models.MachineSnapshot, error)
}

type Repository struct {
	Journal   JournalRepo
	Snapshots SnapshotRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Journal:   NewJournalSQLite(db),
		Snapshots: NewSnapshotSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
