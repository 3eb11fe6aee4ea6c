package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"maintenance_center/internal/logger"
	"maintenance_center/internal/models"
)

func fixedZone(name string, offsetSec int) *time.Location {
	return time.FixedZone(name, offsetSec)
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   mustTimeIn(fixedZone("UTC+3", 3*3600), 2025, time.August, 1, 12, 34, 56),
			want: func(out time.Time) bool {
				exp := time.Date(2025, time.August, 1, 9, 34, 56, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeToUTC(tc.in)
			if !tc.want(got) {
				t.Fatalf("unexpected normalizeToUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

func Test_normalizeEntryType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		exp  string
	}{
		{name: "empty stays empty", in: "", exp: ""},
		{name: "trim spaces", in: "  STATUS_CHANGE ", exp: "STATUS_CHANGE"},
		{name: "uppercase", in: "action_failed", exp: "ACTION_FAILED"},
		{name: "action name accepted", in: "start-repair", exp: "START_REPAIR"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeEntryType(c.in); got != c.exp {
				t.Fatalf("normalizeEntryType(%q) = %q; want %q", c.in, got, c.exp)
			}
		})
	}
}

func TestJournalService_List_DelegatesNormalizedParams(t *testing.T) {
	t.Parallel()

	frepo := &fakeJournalRepo{entries: []models.JournalEntry{{EventID: "1"}}}
	svc := NewJournalService(frepo)

	fromLocal := mustTimeIn(fixedZone("UTC+5", 5*3600), 2025, time.October, 1, 10, 0, 0)
	toLocal := mustTimeIn(fixedZone("UTC-2", -2*3600), 2025, time.October, 1, 12, 30, 0)

	out, err := svc.ListJournal(context.Background(), JournalFilter{
		From:      fromLocal,
		To:        toLocal,
		Type:      " complete-repair ",
		MachineID: " m-9 ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].EventID != "1" {
		t.Fatalf("unexpected entries: %+v", out)
	}
	if frepo.listCalls != 1 {
		t.Fatalf("repo List should be called once, got %d", frepo.listCalls)
	}

	wantFrom := time.Date(2025, time.October, 1, 5, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, time.October, 1, 14, 30, 0, 0, time.UTC)
	got := frepo.gotFilter
	if !got.From.Equal(wantFrom) || !got.To.Equal(wantTo) {
		t.Fatalf("repo got range %v..%v; want %v..%v", got.From, got.To, wantFrom, wantTo)
	}
	if got.Type != "COMPLETE_REPAIR" || got.MachineID != "m-9" {
		t.Fatalf("repo got type=%q machine=%q", got.Type, got.MachineID)
	}
}

func TestJournalService_List_ValidationError(t *testing.T) {
	t.Parallel()

	frepo := &fakeJournalRepo{}
	svc := NewJournalService(frepo)

	_, err := svc.ListJournal(context.Background(), JournalFilter{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange; got %v", err)
	}
	if frepo.listCalls != 0 {
		t.Fatalf("repo should not be called on validation error, calls=%d", frepo.listCalls)
	}
}

func TestJournalService_List_RepoErrorPropagation(t *testing.T) {
	t.Parallel()

	frepo := &fakeJournalRepo{listErr: errors.New("db down")}
	svc := NewJournalService(frepo)

	if _, err := svc.ListJournal(context.Background(), JournalFilter{}); !errors.Is(err, frepo.listErr) {
		t.Fatalf("expected repo error to propagate; got %v", err)
	}
}

func TestAppendJournal_FailureDoesNotPanic(t *testing.T) {
	frepo := &fakeJournalRepo{appendErr: errors.New("disk full")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	appendJournal(ctx, frepo, logger.Nop(), models.JournalEntry{Type: models.JournalStatusChange})

	if len(frepo.entries) != 1 || frepo.entries[0].OccurredAt.IsZero() {
		t.Fatalf("expected one timestamped append attempt, got %+v", frepo.entries)
	}
}

func TestInflight_AllOrNothing(t *testing.T) {
	g := newInflight()

	release, err := g.acquire("m-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := g.acquire("m-2", "m-1"); !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("expected ErrMutationInFlight, got %v", err)
	}
	if g.isBusy("m-2") {
		t.Fatalf("m-2 must not stay busy after a failed acquire")
	}

	release()
	release()
	if g.isBusy("m-1") {
		t.Fatalf("m-1 still busy after release")
	}
}

func TestActorContext(t *testing.T) {
	if got := ActorFrom(context.Background()); got != 0 {
		t.Fatalf("expected no actor, got %d", got)
	}
	if got := ActorFrom(WithActor(context.Background(), 12)); got != 12 {
		t.Fatalf("expected actor 12, got %d", got)
	}
}
