package models

import (
	"time"

	"maintenance_center/internal/lifecycle"

	"github.com/shopspring/decimal"
)

// Ref points at another backend entity by id with its display name.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ApprovalRequest is the cost approval a branch answers for a machine.
type ApprovalRequest struct {
	Status        lifecycle.ApprovalStatus `json:"status"`
	Cost          decimal.Decimal          `json:"cost"`
	Reason        string                   `json:"reason"`
	ResponseNotes string                   `json:"responseNotes,omitempty"`
	RequestedAt   time.Time                `json:"requestedAt"`
	RespondedAt   *time.Time               `json:"respondedAt,omitempty"`
}

// RepairVoucher is recorded when a repair is completed.
type RepairVoucher struct {
	Number    string          `json:"number,omitempty"`
	FinalCost decimal.Decimal `json:"finalCost"`
	IssuedAt  time.Time       `json:"issuedAt"`
}

// MaintenanceMachine is a point-of-sale unit tracked by the maintenance center.
// Status is owned by the backend and only ever replaced by a fresh read.
type MaintenanceMachine struct {
	ID                 string              `json:"id"`
	SerialNumber       string              `json:"serialNumber"`
	Model              string              `json:"model"`
	Manufacturer       string              `json:"manufacturer"`
	Status             lifecycle.Status    `json:"status"`
	AssignedTechnician *Ref                `json:"assignedTechnician,omitempty"`
	OriginBranch       Ref                 `json:"originBranch"`
	ApprovalRequest    *ApprovalRequest    `json:"approvalRequest,omitempty"`
	EstimatedCost      decimal.NullDecimal `json:"estimatedCost"`
	FinalCost          decimal.NullDecimal `json:"finalCost"`
	RepairVoucher      *RepairVoucher      `json:"repairVoucher,omitempty"`
	DaysAtCenter       int                 `json:"daysAtCenter"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// ApprovalStatus returns the approval state, or ApprovalNone when the machine
// never entered WAITING_APPROVAL.
func (m MaintenanceMachine) ApprovalStatus() lifecycle.ApprovalStatus {
	if m.ApprovalRequest == nil {
		return lifecycle.ApprovalNone
	}
	return m.ApprovalRequest.Status
}

// View resolves the presentation model for the machine.
func (m MaintenanceMachine) View() lifecycle.View {
	return lifecycle.Inspect(m.Status, m.ApprovalStatus())
}

// Candidate projects the machine for return package planning.
func (m MaintenanceMachine) Candidate() lifecycle.Candidate {
	return lifecycle.Candidate{
		ID:         m.ID,
		Status:     m.Status,
		BranchID:   m.OriginBranch.ID,
		BranchName: m.OriginBranch.Name,
	}
}

// ReturnOrder is one branch's share of a return package.
type ReturnOrder struct {
	ID          string    `json:"id"`
	Branch      Ref       `json:"branch"`
	MachineIDs  []string  `json:"machineIds"`
	Notes       string    `json:"notes,omitempty"`
	DriverName  string    `json:"driverName,omitempty"`
	DriverPhone string    `json:"driverPhone,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
