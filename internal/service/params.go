package service

import (
	"context"
	"time"

	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/models"
)

// MachineView is a machine together with how to present it and which actions
// to offer.
type MachineView struct {
	models.MaintenanceMachine
	View lifecycle.View `json:"view"`
}

func newMachineView(m models.MaintenanceMachine) MachineView {
	return MachineView{MaintenanceMachine: m, View: m.View()}
}

func newMachineViews(ms []models.MaintenanceMachine) []MachineView {
	out := make([]MachineView, 0, len(ms))
	for _, m := range ms {
		out = append(out, newMachineView(m))
	}
	return out
}

// JournalFilter supports history filtering by time range, type and machine.
type JournalFilter struct {
	From      time.Time // inclusive; zero means no lower bound
	To        time.Time // inclusive; zero means no upper bound
	Type      string
	MachineID string
}

// StatusChange is a machine whose status or approval moved since the last refresh.
type StatusChange struct {
	MachineID    string                   `json:"machineId"`
	From         lifecycle.Status         `json:"from,omitempty"`
	To           lifecycle.Status         `json:"to"`
	FromApproval lifecycle.ApprovalStatus `json:"fromApproval,omitempty"`
	ToApproval   lifecycle.ApprovalStatus `json:"toApproval,omitempty"`
	Machine      MachineView              `json:"machine"`
}

type actorKey struct{}

// WithActor records the operator performing a request.
func WithActor(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the operator recorded by WithActor, or 0.
func ActorFrom(ctx context.Context) int {
	id, _ := ctx.Value(actorKey{}).(int)
	return id
}
