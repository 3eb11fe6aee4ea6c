package service

import (
	"context"
	"sync"
	"time"

	"maintenance_center/internal/cache"
	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/logger"
	"maintenance_center/internal/models"
	"maintenance_center/internal/repository"
)

const subscriberBuffer = 8

// RefreshService re-reads the machine list and reports status changes that
// were not made through this console.
type RefreshService struct {
	backend   CenterAPI
	cache     *cache.QueryCache
	snapshots repository.SnapshotRepo
	journal   repository.JournalRepo
	guard     *inflight
	log       *logger.Logger

	refreshMu sync.Mutex

	subsMu sync.Mutex
	subs   map[int]chan []StatusChange
	nextID int
}

func NewRefreshService(backend CenterAPI, qc *cache.QueryCache, snapshots repository.SnapshotRepo, journal repository.JournalRepo, guard *inflight, log *logger.Logger) *RefreshService {
	return &RefreshService{
		backend:   backend,
		cache:     qc,
		snapshots: snapshots,
		journal:   journal,
		guard:     guard,
		log:       log,
		subs:      make(map[int]chan []StatusChange),
	}
}

// Run refreshes at the given interval until ctx is canceled.
func (s *RefreshService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			changes, err := s.Refresh(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Warnw("refresh_failed", "error", err)
				}
				continue
			}
			if len(changes) > 0 {
				s.log.Infow("refresh_changes", "count", len(changes))
			}
		}
	}
}

// Refresh compares the backend's machines with the last seen snapshots.
// Machines with a pending mutation are skipped for this round.
func (s *RefreshService) Refresh(ctx context.Context) ([]StatusChange, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	known, err := s.snapshots.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := s.backend.ListMachines(ctx, centerapi.ListFilter{})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var (
		changes []StatusChange
		save    []models.MachineSnapshot
		inv     = cache.Invalidation{Resources: []cache.Resource{cache.ResourceMachines}}
	)
	for _, m := range ms {
		if s.guard.isBusy(m.ID) {
			continue
		}
		snap := snapshotOf(m, now)
		prev, seen := known[m.ID]
		if seen && prev.Status == snap.Status && prev.Approval == snap.Approval {
			continue
		}
		save = append(save, snap)
		if !seen {
			continue
		}

		change := StatusChange{
			MachineID:    m.ID,
			From:         lifecycle.Status(prev.Status),
			To:           m.Status,
			FromApproval: lifecycle.ApprovalStatus(prev.Approval),
			ToApproval:   m.ApprovalStatus(),
			Machine:      newMachineView(m),
		}
		changes = append(changes, change)
		inv.Keys = append(inv.Keys, cache.MachineKey(m.ID))
		appendJournal(ctx, s.journal, s.log, models.JournalEntry{
			OccurredAt:  now,
			Type:        models.JournalStatusChange,
			MachineID:   m.ID,
			Description: describeChange(change),
			Metadata: map[string]any{
				"from":          change.From,
				"to":            change.To,
				"from_approval": change.FromApproval,
				"to_approval":   change.ToApproval,
			},
		})
	}

	if len(changes) > 0 {
		s.cache.Apply(inv)
	}
	if err := s.snapshots.SaveAll(ctx, save); err != nil {
		return changes, err
	}
	if len(changes) > 0 {
		s.publish(changes)
	}
	return changes, nil
}

// Subscribe returns a channel of change batches and a func that ends the
// subscription. Slow subscribers miss batches rather than block refreshes.
func (s *RefreshService) Subscribe() (<-chan []StatusChange, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan []StatusChange, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *RefreshService) publish(changes []StatusChange) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- changes:
		default:
		}
	}
}

func describeChange(c StatusChange) string {
	d := string(c.From) + " -> " + string(c.To)
	if c.From == c.To {
		d = "Approval " + string(c.FromApproval) + " -> " + string(c.ToApproval)
	}
	return d
}

func snapshotOf(m models.MaintenanceMachine, now time.Time) models.MachineSnapshot {
	return models.MachineSnapshot{
		MachineID: m.ID,
		Status:    string(m.Status),
		Approval:  string(m.ApprovalStatus()),
		SeenAt:    now,
	}
}

// rememberSnapshots stores what this console itself changed so the next
// refresh does not report it as a change made elsewhere.
func rememberSnapshots(ctx context.Context, repo repository.SnapshotRepo, log *logger.Logger, snaps ...models.MachineSnapshot) {
	if err := repo.SaveAll(context.WithoutCancel(ctx), snaps); err != nil {
		log.Warnw("snapshot_save_failed", "count", len(snaps), "error", err)
	}
}
