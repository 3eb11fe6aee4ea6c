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

	"github.com/shopspring/decimal"
)

// fakeBackend is an in-memory maintenance backend. Mutations apply the
// lifecycle target status unless mutateErr is set.
type fakeBackend struct {
	mu sync.Mutex

	machines    map[string]models.MaintenanceMachine
	technicians []models.Ref

	fetchCalls  map[string]int
	listCalls   int
	mutations   []string
	lastPayload any

	mutateErr error
	listErr   error
	orders    []models.ReturnOrder

	// block, when set, is waited on inside every mutation.
	block chan struct{}
	// entered is signalled when a mutation starts waiting on block.
	entered chan struct{}
}

func newFakeBackend(ms ...models.MaintenanceMachine) *fakeBackend {
	b := &fakeBackend{machines: make(map[string]models.MaintenanceMachine), fetchCalls: make(map[string]int)}
	for _, m := range ms {
		b.machines[m.ID] = m
	}
	return b
}

func (b *fakeBackend) set(m models.MaintenanceMachine) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.machines[m.ID] = m
}

func (b *fakeBackend) mutationCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.mutations)
}

func (b *fakeBackend) FetchMachine(ctx context.Context, id string) (models.MaintenanceMachine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchCalls[id]++
	m, ok := b.machines[id]
	if !ok {
		return models.MaintenanceMachine{}, &centerapi.APIError{StatusCode: 404, Message: "Machine not found"}
	}
	return m, nil
}

func (b *fakeBackend) ListMachines(ctx context.Context, f centerapi.ListFilter) ([]models.MaintenanceMachine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]models.MaintenanceMachine, 0, len(b.machines))
	for _, m := range b.machines {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (b *fakeBackend) ListTechnicians(ctx context.Context) ([]models.Ref, error) {
	return b.technicians, nil
}

func (b *fakeBackend) mutate(id string, kind lifecycle.ActionKind, payload any, apply func(m *models.MaintenanceMachine)) (models.MaintenanceMachine, error) {
	if b.block != nil {
		if b.entered != nil {
			b.entered <- struct{}{}
		}
		<-b.block
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.mutations = append(b.mutations, id+":"+string(kind))
	b.lastPayload = payload
	if b.mutateErr != nil {
		return models.MaintenanceMachine{}, b.mutateErr
	}
	m, ok := b.machines[id]
	if !ok {
		return models.MaintenanceMachine{}, &centerapi.APIError{StatusCode: 404, Message: "Machine not found"}
	}
	if to, ok := lifecycle.Target(m.Status, kind); ok {
		m.Status = to
	}
	if apply != nil {
		apply(&m)
	}
	b.machines[id] = m
	return m, nil
}

func (b *fakeBackend) AssignTechnician(ctx context.Context, id string, in lifecycle.AssignInput) (models.MaintenanceMachine, error) {
	return b.mutate(id, lifecycle.ActionAssignTechnician, in, func(m *models.MaintenanceMachine) {
		m.AssignedTechnician = &models.Ref{ID: in.TechnicianID, Name: "Tech " + in.TechnicianID}
	})
}

func (b *fakeBackend) Inspect(ctx context.Context, id string, in lifecycle.InspectInput) (models.MaintenanceMachine, error) {
	return b.mutate(id, lifecycle.ActionBeginInspection, in, func(m *models.MaintenanceMachine) {
		m.EstimatedCost = in.EstimatedCost
	})
}

func (b *fakeBackend) StartRepair(ctx context.Context, id string, in lifecycle.StartRepairInput) (models.MaintenanceMachine, error) {
	return b.mutate(id, lifecycle.ActionStartRepair, in, nil)
}

func (b *fakeBackend) RequestApproval(ctx context.Context, id string, in lifecycle.RequestApprovalInput) (models.MaintenanceMachine, error) {
	return b.mutate(id, lifecycle.ActionRequestApproval, in, func(m *models.MaintenanceMachine) {
		m.ApprovalRequest = &models.ApprovalRequest{Status: lifecycle.ApprovalPending, Cost: in.Cost.Decimal, Reason: in.Reason}
	})
}

func (b *fakeBackend) MarkTotalLoss(ctx context.Context, id string, in lifecycle.TotalLossInput) (models.MaintenanceMachine, error) {
	return b.mutate(id, lifecycle.ActionMarkTotalLoss, in, nil)
}

func (b *fakeBackend) MarkRepaired(ctx context.Context, id string, in lifecycle.CompleteRepairInput) (models.MaintenanceMachine, error) {
	return b.mutate(id, lifecycle.ActionCompleteRepair, in, func(m *models.MaintenanceMachine) {
		m.FinalCost = in.FinalCost
		m.RepairVoucher = &models.RepairVoucher{Number: in.VoucherNumber, FinalCost: in.FinalCost.Decimal}
	})
}

func (b *fakeBackend) ReturnToBranch(ctx context.Context, id string, in lifecycle.ReturnInput) (models.MaintenanceMachine, error) {
	return b.mutate(id, lifecycle.ActionReturnToBranch, in, nil)
}

func (b *fakeBackend) CreateReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) ([]models.ReturnOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mutations = append(b.mutations, "package")
	b.lastPayload = in
	if b.mutateErr != nil {
		return nil, b.mutateErr
	}
	if b.orders != nil {
		return b.orders, nil
	}
	byBranch := map[string]*models.ReturnOrder{}
	var out []models.ReturnOrder
	var order []string
	for _, id := range in.MachineIDs {
		m := b.machines[id]
		m.Status = lifecycle.StatusReturned
		b.machines[id] = m
		o, ok := byBranch[m.OriginBranch.ID]
		if !ok {
			o = &models.ReturnOrder{ID: "o-" + m.OriginBranch.ID, Branch: m.OriginBranch}
			byBranch[m.OriginBranch.ID] = o
			order = append(order, m.OriginBranch.ID)
		}
		o.MachineIDs = append(o.MachineIDs, id)
	}
	for _, bid := range order {
		out = append(out, *byBranch[bid])
	}
	return out, nil
}

type fakeJournalRepo struct {
	mu        sync.Mutex
	entries   []models.JournalEntry
	appendErr error

	gotFilter repository.JournalFilter
	listCalls int
	listErr   error
}

func (f *fakeJournalRepo) Append(ctx context.Context, e models.JournalEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return f.appendErr
}

func (f *fakeJournalRepo) List(ctx context.Context, filter repository.JournalFilter) ([]models.JournalEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.gotFilter = filter
	return f.entries, f.listErr
}

func (f *fakeJournalRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Type)
	}
	return out
}

type fakeSnapshotRepo struct {
	mu    sync.Mutex
	snaps map[string]models.MachineSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snaps: make(map[string]models.MachineSnapshot)}
}

func (f *fakeSnapshotRepo) SaveAll(ctx context.Context, snaps []models.MachineSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range snaps {
		f.snaps[s.MachineID] = s
	}
	return nil
}

func (f *fakeSnapshotRepo) LoadAll(ctx context.Context) (map[string]models.MachineSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.MachineSnapshot, len(f.snaps))
	for k, v := range f.snaps {
		out[k] = v
	}
	return out, nil
}

// harness wires the services over the fakes the way NewService does.
type harness struct {
	backend   *fakeBackend
	cache     *cache.QueryCache
	journal   *fakeJournalRepo
	snapshots *fakeSnapshotRepo
	guard     *inflight

	machines  *MachineService
	workflow  *WorkflowService
	returns   *ReturnPackageService
	refresher *RefreshService
}

func newHarness(ms ...models.MaintenanceMachine) *harness {
	h := &harness{
		backend:   newFakeBackend(ms...),
		cache:     cache.New(time.Minute, time.Minute),
		journal:   &fakeJournalRepo{},
		snapshots: newFakeSnapshotRepo(),
		guard:     newInflight(),
	}
	log := logger.Nop()
	h.machines = NewMachineService(h.backend, h.cache)
	h.workflow = NewWorkflowService(h.backend, h.cache, h.journal, h.snapshots, h.guard, log)
	h.returns = NewReturnPackageService(h.backend, h.cache, h.journal, h.snapshots, h.guard, log)
	h.refresher = NewRefreshService(h.backend, h.cache, h.snapshots, h.journal, h.guard, log)
	return h
}

func machine(id string, status lifecycle.Status, branch string) models.MaintenanceMachine {
	return models.MaintenanceMachine{
		ID:           id,
		SerialNumber: "SN-" + id,
		Status:       status,
		OriginBranch: models.Ref{ID: branch, Name: "Branch " + branch},
	}
}

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
