package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"maintenance_center/internal/logger"
	"maintenance_center/internal/models"
	"maintenance_center/internal/repository"
)

type JournalService struct {
	journal repository.JournalRepo
}

func NewJournalService(journal repository.JournalRepo) *JournalService {
	return &JournalService{journal: journal}
}

// ErrInvalidTimeRange is returned when a journal filter ends before it starts.
var ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEntryType trims spaces, uppercases and accepts the kebab case
// action names as journal types.
func normalizeEntryType(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToUpper(s)), "-", "_")
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f JournalFilter) (repository.JournalFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return repository.JournalFilter{}, ErrInvalidTimeRange
	}

	return repository.JournalFilter{
		From:      from,
		To:        to,
		Type:      normalizeEntryType(f.Type),
		MachineID: strings.TrimSpace(f.MachineID),
	}, nil
}

func (s *JournalService) ListJournal(ctx context.Context, f JournalFilter) ([]models.JournalEntry, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.journal.List(ctx, rf)
}

// appendJournal writes e; a journal failure is logged and never fails the
// operation being recorded.
func appendJournal(ctx context.Context, journal repository.JournalRepo, log *logger.Logger, e models.JournalEntry) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := journal.Append(context.WithoutCancel(ctx), e); err != nil {
		log.Warnw("journal_append_failed", "type", e.Type, "machine_id", e.MachineID, "error", err)
	}
}
