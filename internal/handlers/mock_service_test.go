package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/config"
	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/models"
	"maintenance_center/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername    string
	lastSignUpDisplayName string
	lastSignUpPassword    string
	lastGenUsername       string
	lastGenPassword       string
	lastParseToken        string
}

func (m *mockAuth) SignUp(username, displayName, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpDisplayName = displayName
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMachines struct {
	mu          sync.Mutex
	items       []service.MachineView
	machine     service.MachineView
	technicians []models.Ref
	err         error
	listCalls   int
	lastFilter  centerapi.ListFilter
	lastID      string
}

func (m *mockMachines) ListMachines(ctx context.Context, f centerapi.ListFilter) ([]service.MachineView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.lastFilter = f
	return m.items, m.err
}
func (m *mockMachines) GetMachine(ctx context.Context, id string) (service.MachineView, error) {
	m.lastID = id
	return m.machine, m.err
}
func (m *mockMachines) ListTechnicians(ctx context.Context) ([]models.Ref, error) {
	return m.technicians, m.err
}

func (m *mockMachines) filter() centerapi.ListFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFilter
}

func (m *mockMachines) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// mockWorkflow records the last action and returns machine or err for all of them.
type mockWorkflow struct {
	machine   service.MachineView
	err       error
	lastKind  lifecycle.ActionKind
	lastID    string
	lastInput any
	lastActor int
}

func (m *mockWorkflow) record(ctx context.Context, kind lifecycle.ActionKind, id string, in any) (service.MachineView, error) {
	m.lastKind, m.lastID, m.lastInput = kind, id, in
	m.lastActor = service.ActorFrom(ctx)
	return m.machine, m.err
}

func (m *mockWorkflow) AssignTechnician(ctx context.Context, id string, in lifecycle.AssignInput) (service.MachineView, error) {
	return m.record(ctx, lifecycle.ActionAssignTechnician, id, in)
}
func (m *mockWorkflow) BeginInspection(ctx context.Context, id string, in lifecycle.InspectInput) (service.MachineView, error) {
	return m.record(ctx, lifecycle.ActionBeginInspection, id, in)
}
func (m *mockWorkflow) StartRepair(ctx context.Context, id string, in lifecycle.StartRepairInput) (service.MachineView, error) {
	return m.record(ctx, lifecycle.ActionStartRepair, id, in)
}
func (m *mockWorkflow) RequestApproval(ctx context.Context, id string, in lifecycle.RequestApprovalInput) (service.MachineView, error) {
	return m.record(ctx, lifecycle.ActionRequestApproval, id, in)
}
func (m *mockWorkflow) MarkTotalLoss(ctx context.Context, id string, in lifecycle.TotalLossInput) (service.MachineView, error) {
	return m.record(ctx, lifecycle.ActionMarkTotalLoss, id, in)
}
func (m *mockWorkflow) CompleteRepair(ctx context.Context, id string, in lifecycle.CompleteRepairInput) (service.MachineView, error) {
	return m.record(ctx, lifecycle.ActionCompleteRepair, id, in)
}
func (m *mockWorkflow) ReturnToBranch(ctx context.Context, id string, in lifecycle.ReturnInput) (service.MachineView, error) {
	return m.record(ctx, lifecycle.ActionReturnToBranch, id, in)
}

type mockReturns struct {
	plan      lifecycle.ReturnPlan
	orders    []models.ReturnOrder
	err       error
	lastInput lifecycle.ReturnPackageInput
}

func (m *mockReturns) PreviewReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) (lifecycle.ReturnPlan, error) {
	m.lastInput = in
	return m.plan, m.err
}
func (m *mockReturns) CreateReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) ([]models.ReturnOrder, error) {
	m.lastInput = in
	return m.orders, m.err
}

type mockJournal struct {
	resp       []models.JournalEntry
	err        error
	lastFilter service.JournalFilter
}

func (m *mockJournal) ListJournal(ctx context.Context, f service.JournalFilter) ([]models.JournalEntry, error) {
	m.lastFilter = f
	return m.resp, m.err
}

type mockRefresher struct {
	ch           chan []service.StatusChange
	unsubscribed chan struct{}
	once         sync.Once
}

func newMockRefresher() *mockRefresher {
	return &mockRefresher{ch: make(chan []service.StatusChange, 1), unsubscribed: make(chan struct{})}
}

func (m *mockRefresher) Run(ctx context.Context, tick time.Duration) {}
func (m *mockRefresher) Refresh(ctx context.Context) ([]service.StatusChange, error) {
	return nil, nil
}
func (m *mockRefresher) Subscribe() (<-chan []service.StatusChange, func()) {
	return m.ch, func() { m.once.Do(func() { close(m.unsubscribed) }) }
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, config.RateLimitConfig{})
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func testMachine(id string, status lifecycle.Status) service.MachineView {
	return service.MachineView{
		MaintenanceMachine: models.MaintenanceMachine{
			ID:           id,
			SerialNumber: "SN-" + id,
			Status:       status,
			OriginBranch: models.Ref{ID: "b-1", Name: "Downtown"},
		},
		View: lifecycle.Inspect(status, lifecycle.ApprovalNone),
	}
}
