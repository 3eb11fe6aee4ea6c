package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"maintenance_center/internal/cache"
	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/logger"
	"maintenance_center/internal/models"
	"maintenance_center/internal/repository"
)

type ReturnPackageService struct {
	backend   CenterAPI
	cache     *cache.QueryCache
	journal   repository.JournalRepo
	snapshots repository.SnapshotRepo
	guard     *inflight
	log       *logger.Logger
}

func NewReturnPackageService(backend CenterAPI, qc *cache.QueryCache, journal repository.JournalRepo, snapshots repository.SnapshotRepo, guard *inflight, log *logger.Logger) *ReturnPackageService {
	return &ReturnPackageService{backend: backend, cache: qc, journal: journal, snapshots: snapshots, guard: guard, log: log}
}

// PreviewReturnPackage groups the selection by origin branch and reports the
// machines that cannot travel in a package.
func (s *ReturnPackageService) PreviewReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) (lifecycle.ReturnPlan, error) {
	in, err := in.Normalize()
	if err != nil {
		return lifecycle.ReturnPlan{}, err
	}
	plan, _, err := s.plan(ctx, in.MachineIDs)
	return plan, err
}

// CreateReturnPackage submits the selection as one package. The backend
// creates one return order per origin branch.
func (s *ReturnPackageService) CreateReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) ([]models.ReturnOrder, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	release, err := s.guard.acquire(in.MachineIDs...)
	if err != nil {
		return nil, err
	}
	defer release()

	plan, current, err := s.plan(ctx, in.MachineIDs)
	if err != nil {
		return nil, err
	}
	if len(plan.Ineligible) > 0 {
		return nil, fmt.Errorf("%w: %s not REPAIRED or TOTAL_LOSS", lifecycle.ErrActionNotAllowed, strings.Join(plan.Ineligible, ", "))
	}

	orders, err := s.backend.CreateReturnPackage(ctx, in)
	if err != nil {
		for _, id := range in.MachineIDs {
			appendJournal(ctx, s.journal, s.log, failureEntry(ctx, id, lifecycle.ActionIncludeInReturnPackage, current[id].Status, err))
		}
		return nil, err
	}

	s.cache.Apply(cache.Invalidations(lifecycle.ActionIncludeInReturnPackage, in.MachineIDs...))

	now := time.Now().UTC()
	snaps := make([]models.MachineSnapshot, 0, len(current))
	for _, m := range current {
		if to, ok := lifecycle.Target(m.Status, lifecycle.ActionIncludeInReturnPackage); ok {
			m.Status = to
		}
		snaps = append(snaps, snapshotOf(m, now))
	}
	rememberSnapshots(ctx, s.snapshots, s.log, snaps...)

	for _, o := range orders {
		for _, id := range o.MachineIDs {
			appendJournal(ctx, s.journal, s.log, models.JournalEntry{
				Type:        lifecycle.ActionIncludeInReturnPackage.JournalType(),
				MachineID:   id,
				UserID:      ActorFrom(ctx),
				Description: "Included in return order " + o.ID + " to " + o.Branch.Name,
				Metadata: map[string]any{
					"order_id":     o.ID,
					"branch_id":    o.Branch.ID,
					"driver_name":  in.DriverName,
					"driver_phone": in.DriverPhone,
				},
			})
		}
	}
	return orders, nil
}

func (s *ReturnPackageService) plan(ctx context.Context, ids []string) (lifecycle.ReturnPlan, map[string]models.MaintenanceMachine, error) {
	current := make(map[string]models.MaintenanceMachine, len(ids))
	candidates := make([]lifecycle.Candidate, 0, len(ids))
	for _, id := range ids {
		m, err := fetchCurrent(ctx, s.backend, s.cache, id)
		if err != nil {
			return lifecycle.ReturnPlan{}, nil, fmt.Errorf("machine %s: %w", id, err)
		}
		current[id] = m
		candidates = append(candidates, m.Candidate())
	}
	return lifecycle.PlanReturnPackage(candidates), current, nil
}
