package service

import (
	"errors"
	"sync"
)

// ErrMutationInFlight is returned when a machine already has a pending action.
var ErrMutationInFlight = errors.New("another action is already in progress for this machine")

// inflight tracks machines with a pending backend mutation.
type inflight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{busy: make(map[string]struct{})}
}

// acquire marks every id busy, or none of them when any is already busy.
func (g *inflight) acquire(ids ...string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		if _, ok := g.busy[id]; ok {
			return nil, ErrMutationInFlight
		}
	}
	for _, id := range ids {
		g.busy[id] = struct{}{}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			for _, id := range ids {
				delete(g.busy, id)
			}
		})
	}, nil
}

func (g *inflight) isBusy(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[id]
	return ok
}
