package service

import (
	"context"
	"strings"

	"maintenance_center/internal/cache"
	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/models"
)

type MachineService struct {
	backend CenterAPI
	cache   *cache.QueryCache
}

func NewMachineService(backend CenterAPI, qc *cache.QueryCache) *MachineService {
	return &MachineService{backend: backend, cache: qc}
}

func (s *MachineService) ListMachines(ctx context.Context, f centerapi.ListFilter) ([]MachineView, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	ms, err := listMachines(ctx, s.backend, s.cache, f)
	if err != nil {
		return nil, err
	}
	return newMachineViews(ms), nil
}

func (s *MachineService) GetMachine(ctx context.Context, id string) (MachineView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return MachineView{}, errMachineIDRequired
	}
	m, err := fetchMachine(ctx, s.backend, s.cache, id)
	if err != nil {
		return MachineView{}, err
	}
	return newMachineView(m), nil
}

func (s *MachineService) ListTechnicians(ctx context.Context) ([]models.Ref, error) {
	return cache.Fetch(s.cache, cache.ListKey(cache.ResourceTechnicians, nil), func() ([]models.Ref, error) {
		return s.backend.ListTechnicians(ctx)
	})
}

var errMachineIDRequired = &lifecycle.ValidationError{Field: "id", Message: "machine id is required"}

func fetchMachine(ctx context.Context, backend CenterAPI, qc *cache.QueryCache, id string) (models.MaintenanceMachine, error) {
	return cache.Fetch(qc, cache.MachineKey(id), func() (models.MaintenanceMachine, error) {
		return backend.FetchMachine(ctx, id)
	})
}

// fetchCurrent reads the machine from the backend, bypassing the cache, and
// stores the result for later reads. Legality checks use it.
func fetchCurrent(ctx context.Context, backend CenterAPI, qc *cache.QueryCache, id string) (models.MaintenanceMachine, error) {
	m, err := backend.FetchMachine(ctx, id)
	if err != nil {
		return models.MaintenanceMachine{}, err
	}
	qc.Set(cache.MachineKey(id), m)
	return m, nil
}

func listMachines(ctx context.Context, backend CenterAPI, qc *cache.QueryCache, f centerapi.ListFilter) ([]models.MaintenanceMachine, error) {
	return cache.Fetch(qc, cache.ListKey(cache.ResourceMachines, f.Values()), func() ([]models.MaintenanceMachine, error) {
		return backend.ListMachines(ctx, f)
	})
}
