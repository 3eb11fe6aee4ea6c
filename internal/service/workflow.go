package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"maintenance_center/internal/cache"
	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/logger"
	"maintenance_center/internal/models"
	"maintenance_center/internal/repository"
)

type WorkflowService struct {
	backend   CenterAPI
	cache     *cache.QueryCache
	journal   repository.JournalRepo
	snapshots repository.SnapshotRepo
	guard     *inflight
	log       *logger.Logger
}

func NewWorkflowService(backend CenterAPI, qc *cache.QueryCache, journal repository.JournalRepo, snapshots repository.SnapshotRepo, guard *inflight, log *logger.Logger) *WorkflowService {
	return &WorkflowService{backend: backend, cache: qc, journal: journal, snapshots: snapshots, guard: guard, log: log}
}

// step is one lifecycle action. prepare runs against the current machine
// after the legality check; call is the single backend mutation.
type step struct {
	kind     lifecycle.ActionKind
	prepare  func(current models.MaintenanceMachine) error
	call     func(ctx context.Context) (models.MaintenanceMachine, error)
	describe func(current, updated models.MaintenanceMachine) string
	meta     map[string]any
}

func (s *WorkflowService) AssignTechnician(ctx context.Context, id string, in lifecycle.AssignInput) (MachineView, error) {
	if err := in.Validate(); err != nil {
		return MachineView{}, err
	}
	return s.perform(ctx, id, step{
		kind: lifecycle.ActionAssignTechnician,
		call: func(ctx context.Context) (models.MaintenanceMachine, error) {
			return s.backend.AssignTechnician(ctx, id, in)
		},
		describe: func(_, updated models.MaintenanceMachine) string {
			if updated.AssignedTechnician != nil && updated.AssignedTechnician.Name != "" {
				return "Technician " + updated.AssignedTechnician.Name + " assigned"
			}
			return "Technician " + in.TechnicianID + " assigned"
		},
		meta: map[string]any{"technician_id": in.TechnicianID},
	})
}

func (s *WorkflowService) BeginInspection(ctx context.Context, id string, in lifecycle.InspectInput) (MachineView, error) {
	if err := in.Validate(); err != nil {
		return MachineView{}, err
	}
	meta := map[string]any{"problem_description": in.ProblemDescription, "required_parts": len(in.RequiredParts)}
	if in.EstimatedCost.Valid {
		meta["estimated_cost"] = in.EstimatedCost.Decimal.StringFixed(2)
	}
	return s.perform(ctx, id, step{
		kind: lifecycle.ActionBeginInspection,
		call: func(ctx context.Context) (models.MaintenanceMachine, error) {
			return s.backend.Inspect(ctx, id, in)
		},
		describe: func(_, _ models.MaintenanceMachine) string { return "Inspection started" },
		meta:     meta,
	})
}

// StartRepair moves an inspected machine into repair without a cost approval.
func (s *WorkflowService) StartRepair(ctx context.Context, id string, in lifecycle.StartRepairInput) (MachineView, error) {
	if err := in.Validate(); err != nil {
		return MachineView{}, err
	}
	meta := map[string]any{"repair_type": string(in.RepairType)}
	if in.EstimatedCost.Valid {
		meta["estimated_cost"] = in.EstimatedCost.Decimal.StringFixed(2)
	}
	return s.perform(ctx, id, step{
		kind: lifecycle.ActionStartRepair,
		call: func(ctx context.Context) (models.MaintenanceMachine, error) {
			return s.backend.StartRepair(ctx, id, in)
		},
		describe: func(_, _ models.MaintenanceMachine) string {
			return "Started " + string(in.RepairType) + " repair"
		},
		meta: meta,
	})
}

func (s *WorkflowService) RequestApproval(ctx context.Context, id string, in lifecycle.RequestApprovalInput) (MachineView, error) {
	if err := in.Validate(); err != nil {
		return MachineView{}, err
	}
	cost := in.Cost.Decimal.StringFixed(2)
	return s.perform(ctx, id, step{
		kind: lifecycle.ActionRequestApproval,
		call: func(ctx context.Context) (models.MaintenanceMachine, error) {
			return s.backend.RequestApproval(ctx, id, in)
		},
		describe: func(_, _ models.MaintenanceMachine) string {
			return "Requested approval for " + cost
		},
		meta: map[string]any{"cost": cost, "reason": in.Reason, "parts": len(in.Parts)},
	})
}

func (s *WorkflowService) MarkTotalLoss(ctx context.Context, id string, in lifecycle.TotalLossInput) (MachineView, error) {
	if err := in.Validate(); err != nil {
		return MachineView{}, err
	}
	return s.perform(ctx, id, step{
		kind: lifecycle.ActionMarkTotalLoss,
		call: func(ctx context.Context) (models.MaintenanceMachine, error) {
			return s.backend.MarkTotalLoss(ctx, id, in)
		},
		describe: func(_, _ models.MaintenanceMachine) string {
			return "Marked total loss: " + in.Reason
		},
		meta: map[string]any{"reason": in.Reason},
	})
}

// CompleteRepair closes a repair. An unset final cost defaults to the
// machine's estimated cost.
func (s *WorkflowService) CompleteRepair(ctx context.Context, id string, in lifecycle.CompleteRepairInput) (MachineView, error) {
	var prepared lifecycle.CompleteRepairInput
	meta := map[string]any{}
	return s.perform(ctx, id, step{
		kind: lifecycle.ActionCompleteRepair,
		prepare: func(current models.MaintenanceMachine) error {
			var err error
			if prepared, err = in.WithDefaults(current.EstimatedCost); err != nil {
				return err
			}
			meta["voucher_number"] = prepared.VoucherNumber
			meta["final_cost"] = prepared.FinalCost.Decimal.StringFixed(2)
			return nil
		},
		call: func(ctx context.Context) (models.MaintenanceMachine, error) {
			return s.backend.MarkRepaired(ctx, id, prepared)
		},
		describe: func(_, _ models.MaintenanceMachine) string {
			return "Repair completed, final cost " + prepared.FinalCost.Decimal.StringFixed(2)
		},
		meta: meta,
	})
}

func (s *WorkflowService) ReturnToBranch(ctx context.Context, id string, in lifecycle.ReturnInput) (MachineView, error) {
	return s.perform(ctx, id, step{
		kind: lifecycle.ActionReturnToBranch,
		call: func(ctx context.Context) (models.MaintenanceMachine, error) {
			return s.backend.ReturnToBranch(ctx, id, in)
		},
		describe: func(current, _ models.MaintenanceMachine) string {
			return "Returned to branch " + current.OriginBranch.Name
		},
		meta: map[string]any{"waybill_number": in.WaybillNumber},
	})
}

// perform runs one action: in-flight guard, legality check against the
// current status, one backend call, cache invalidation and a journal entry.
// The returned machine is the backend's; status is never advanced locally.
func (s *WorkflowService) perform(ctx context.Context, id string, st step) (MachineView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return MachineView{}, errMachineIDRequired
	}

	release, err := s.guard.acquire(id)
	if err != nil {
		return MachineView{}, err
	}
	defer release()

	current, err := fetchCurrent(ctx, s.backend, s.cache, id)
	if err != nil {
		return MachineView{}, err
	}
	if !lifecycle.Allows(current.Status, current.ApprovalStatus(), st.kind) {
		return MachineView{}, fmt.Errorf("%w: %s while %s", lifecycle.ErrActionNotAllowed, st.kind, lifecycle.Describe(current.Status).Label)
	}
	if st.prepare != nil {
		if err := st.prepare(current); err != nil {
			return MachineView{}, err
		}
	}

	updated, err := st.call(ctx)
	if err != nil {
		if _, ok := centerapi.AsAPIError(err); ok {
			// the backend disagrees with what we had cached
			s.cache.Apply(cache.Invalidations(st.kind, id))
		}
		s.record(ctx, failureEntry(ctx, id, st.kind, current.Status, err))
		return MachineView{}, err
	}

	s.cache.Apply(cache.Invalidations(st.kind, id))
	rememberSnapshots(ctx, s.snapshots, s.log, snapshotOf(updated, time.Now().UTC()))
	if want, ok := lifecycle.Target(current.Status, st.kind); ok && updated.Status != want {
		s.log.Warnw("backend_status_mismatch",
			"machine_id", id, "action", st.kind, "expected", want, "reported", updated.Status)
	}

	meta := map[string]any{"from": current.Status, "to": updated.Status}
	for k, v := range st.meta {
		meta[k] = v
	}
	s.record(ctx, models.JournalEntry{
		Type:        st.kind.JournalType(),
		MachineID:   id,
		UserID:      ActorFrom(ctx),
		Description: st.describe(current, updated),
		Metadata:    meta,
	})

	return newMachineView(updated), nil
}

func failureEntry(ctx context.Context, machineID string, kind lifecycle.ActionKind, status lifecycle.Status, err error) models.JournalEntry {
	meta := map[string]any{"action": string(kind), "status": status}
	msg := err.Error()
	if apiErr, ok := centerapi.AsAPIError(err); ok {
		meta["status_code"] = apiErr.StatusCode
		msg = apiErr.Message
	} else if errors.Is(err, centerapi.ErrUnavailable) {
		meta["unavailable"] = true
	}
	meta["message"] = msg
	return models.JournalEntry{
		Type:        models.JournalActionFailed,
		MachineID:   machineID,
		UserID:      ActorFrom(ctx),
		Description: string(kind) + " failed: " + msg,
		Metadata:    meta,
	}
}

func (s *WorkflowService) record(ctx context.Context, e models.JournalEntry) {
	appendJournal(ctx, s.journal, s.log, e)
}
