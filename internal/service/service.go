package service

import (
	"context"
	"time"

	"maintenance_center/internal/cache"
	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/config"
	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/logger"
	"maintenance_center/internal/models"
	"maintenance_center/internal/repository"
)

type Authorization interface {
	SignUp(username, displayName, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Machines exposes read access to machines and technicians through the query cache.
type Machines interface {
	ListMachines(ctx context.Context, f centerapi.ListFilter) ([]MachineView, error)
	GetMachine(ctx context.Context, id string) (MachineView, error)
	ListTechnicians(ctx context.Context) ([]models.Ref, error)
}

// Workflow performs single-machine lifecycle actions against the backend.
type Workflow interface {
	AssignTechnician(ctx context.Context, id string, in lifecycle.AssignInput) (MachineView, error)
	BeginInspection(ctx context.Context, id string, in lifecycle.InspectInput) (MachineView, error)
	StartRepair(ctx context.Context, id string, in lifecycle.StartRepairInput) (MachineView, error)
	RequestApproval(ctx context.Context, id string, in lifecycle.RequestApprovalInput) (MachineView, error)
	MarkTotalLoss(ctx context.Context, id string, in lifecycle.TotalLossInput) (MachineView, error)
	CompleteRepair(ctx context.Context, id string, in lifecycle.CompleteRepairInput) (MachineView, error)
	ReturnToBranch(ctx context.Context, id string, in lifecycle.ReturnInput) (MachineView, error)
}

// ReturnPackages batches REPAIRED and TOTAL_LOSS machines back to their branches.
type ReturnPackages interface {
	PreviewReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) (lifecycle.ReturnPlan, error)
	CreateReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) ([]models.ReturnOrder, error)
}

// Journal exposes the action journal with filtering.
type Journal interface {
	ListJournal(ctx context.Context, f JournalFilter) ([]models.JournalEntry, error)
}

// Refresher re-reads machines periodically and publishes status changes made
// elsewhere. Stop via context cancellation in main() for graceful shutdown.
type Refresher interface {
	Run(ctx context.Context, tick time.Duration)
	Refresh(ctx context.Context) ([]StatusChange, error)
	Subscribe() (<-chan []StatusChange, func())
}

// CenterAPI is the maintenance backend as seen by the services.
type CenterAPI interface {
	FetchMachine(ctx context.Context, id string) (models.MaintenanceMachine, error)
	ListMachines(ctx context.Context, f centerapi.ListFilter) ([]models.MaintenanceMachine, error)
	ListTechnicians(ctx context.Context) ([]models.Ref, error)
	AssignTechnician(ctx context.Context, id string, in lifecycle.AssignInput) (models.MaintenanceMachine, error)
	Inspect(ctx context.Context, id string, in lifecycle.InspectInput) (models.MaintenanceMachine, error)
	StartRepair(ctx context.Context, id string, in lifecycle.StartRepairInput) (models.MaintenanceMachine, error)
	RequestApproval(ctx context.Context, id string, in lifecycle.RequestApprovalInput) (models.MaintenanceMachine, error)
	MarkTotalLoss(ctx context.Context, id string, in lifecycle.TotalLossInput) (models.MaintenanceMachine, error)
	MarkRepaired(ctx context.Context, id string, in lifecycle.CompleteRepairInput) (models.MaintenanceMachine, error)
	ReturnToBranch(ctx context.Context, id string, in lifecycle.ReturnInput) (models.MaintenanceMachine, error)
	CreateReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) ([]models.ReturnOrder, error)
}

var _ CenterAPI = (*centerapi.Client)(nil)

type Service struct {
	Machines
	Workflow
	ReturnPackages
	Journal
	Refresher
	Authorization
}

// NewService wires the repositories and the backend client into the services.
// Workflow, return packages and the refresher share one in-flight guard so a
// refresh never races a pending mutation.
func NewService(repos *repository.Repository, backend CenterAPI, qc *cache.QueryCache, auth config.AuthConfig, log *logger.Logger) *Service {
	guard := newInflight()
	return &Service{
		Machines:       NewMachineService(backend, qc),
		Workflow:       NewWorkflowService(backend, qc, repos.Journal, repos.Snapshots, guard, log),
		ReturnPackages: NewReturnPackageService(backend, qc, repos.Journal, repos.Snapshots, guard, log),
		Journal:        NewJournalService(repos.Journal),
		Refresher:      NewRefreshService(backend, qc, repos.Snapshots, repos.Journal, guard, log),
		Authorization:  NewAuthService(repos.Auth, auth),
	}
}
