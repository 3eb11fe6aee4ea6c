package lifecycle

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Part is a spare part required by an inspection, repair or approval request.
type Part struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func validateParts(field string, parts []Part) error {
	for _, p := range parts {
		if strings.TrimSpace(p.Name) == "" {
			return invalid(field, "part name is required")
		}
		if p.Quantity <= 0 {
			return invalid(field, "part quantity must be positive")
		}
	}
	return nil
}

func validateOptionalCost(field string, c decimal.NullDecimal) error {
	if c.Valid && c.Decimal.IsNegative() {
		return invalid(field, "must not be negative")
	}
	return nil
}

// AssignInput selects the technician responsible for a machine.
type AssignInput struct {
	TechnicianID string `json:"technicianId"`
}

func (in AssignInput) Validate() error {
	if strings.TrimSpace(in.TechnicianID) == "" {
		return invalid("technicianId", "technician is required")
	}
	return nil
}

// InspectInput records the inspection findings that open UNDER_INSPECTION.
type InspectInput struct {
	ProblemDescription string              `json:"problemDescription"`
	EstimatedCost      decimal.NullDecimal `json:"estimatedCost"`
	RequiredParts      []Part              `json:"requiredParts"`
}

func (in InspectInput) Validate() error {
	if strings.TrimSpace(in.ProblemDescription) == "" {
		return invalid("problemDescription", "problem description is required")
	}
	if err := validateOptionalCost("estimatedCost", in.EstimatedCost); err != nil {
		return err
	}
	return validateParts("requiredParts", in.RequiredParts)
}

// StartRepairInput moves an inspected machine straight into repair.
type StartRepairInput struct {
	RepairType    RepairType          `json:"repairType"`
	EstimatedCost decimal.NullDecimal `json:"estimatedCost"`
	RequiredParts []Part              `json:"requiredParts"`
}

func (in StartRepairInput) Validate() error {
	if !in.RepairType.Valid() {
		return invalid("repairType", "must be FREE or PAID")
	}
	if err := validateOptionalCost("estimatedCost", in.EstimatedCost); err != nil {
		return err
	}
	return validateParts("requiredParts", in.RequiredParts)
}

// RequestApprovalInput asks the origin branch to approve a repair cost.
type RequestApprovalInput struct {
	Cost   decimal.NullDecimal `json:"cost"`
	Reason string              `json:"reason"`
	Parts  []Part              `json:"parts"`
}

func (in RequestApprovalInput) Validate() error {
	if !in.Cost.Valid || !in.Cost.Decimal.IsPositive() {
		return invalid("cost", "requested cost is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return invalid("reason", "reason is required")
	}
	return validateParts("parts", in.Parts)
}

// TotalLossInput declares a machine beyond repair.
type TotalLossInput struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

func (in TotalLossInput) Validate() error {
	if strings.TrimSpace(in.Reason) == "" {
		return invalid("reason", "reason is required")
	}
	return nil
}

// CompleteRepairInput closes a repair and records its voucher.
type CompleteRepairInput struct {
	FinalCost     decimal.NullDecimal `json:"finalCost"`
	VoucherNumber string              `json:"voucherNumber"`
	Notes         string              `json:"notes"`
}

// WithDefaults fills an unset final cost from the machine's estimate and
// validates the result.
func (in CompleteRepairInput) WithDefaults(estimated decimal.NullDecimal) (CompleteRepairInput, error) {
	if !in.FinalCost.Valid {
		in.FinalCost = estimated
	}
	if !in.FinalCost.Valid {
		return in, invalid("finalCost", "final cost is required")
	}
	if err := validateOptionalCost("finalCost", in.FinalCost); err != nil {
		return in, err
	}
	in.VoucherNumber = strings.TrimSpace(in.VoucherNumber)
	return in, nil
}

// ReturnInput sends a single repaired machine back to its branch.
type ReturnInput struct {
	ReturnNotes   string `json:"returnNotes"`
	WaybillNumber string `json:"waybillNumber"`
}

// ReturnPackageInput selects machines for a batch return. Notes and driver
// details are provenance only and are not validated.
type ReturnPackageInput struct {
	MachineIDs  []string `json:"machineIds"`
	Notes       string   `json:"notes"`
	DriverName  string   `json:"driverName"`
	DriverPhone string   `json:"driverPhone"`
}

// Normalize drops blank and repeated ids, keeping the first occurrence order,
// and rejects an empty selection.
func (in ReturnPackageInput) Normalize() (ReturnPackageInput, error) {
	seen := make(map[string]struct{}, len(in.MachineIDs))
	ids := make([]string, 0, len(in.MachineIDs))
	for _, id := range in.MachineIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return in, ErrEmptySelection
	}
	in.MachineIDs = ids
	return in, nil
}
