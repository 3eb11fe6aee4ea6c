package lifecycle

import "fmt"

// Status is a maintenance machine lifecycle state as reported by the backend.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusUnderInspection Status = "UNDER_INSPECTION"
	StatusRepairing       Status = "REPAIRING"
	StatusWaitingApproval Status = "WAITING_APPROVAL"
	StatusRepaired        Status = "REPAIRED"
	StatusTotalLoss       Status = "TOTAL_LOSS"
	StatusReturned        Status = "RETURNED"
)

// ApprovalStatus is the state of a cost approval request. The zero value means
// the machine has no approval request.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = ""
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// AllStatuses lists every lifecycle state in workflow order.
func AllStatuses() []Status {
	return []Status{
		StatusNew,
		StatusUnderInspection,
		StatusRepairing,
		StatusWaitingApproval,
		StatusRepaired,
		StatusTotalLoss,
		StatusReturned,
	}
}

// Descriptor is the display metadata for a status.
type Descriptor struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var unknownDescriptor = Descriptor{Label: "Unknown", Icon: "help-circle", Color: "gray"}

// Describe returns the display descriptor for s.
func Describe(s Status) Descriptor {
	switch s {
	case StatusNew:
		return Descriptor{Label: "New", Icon: "inbox", Color: "blue"}
	case StatusUnderInspection:
		return Descriptor{Label: "Under inspection", Icon: "search", Color: "yellow"}
	case StatusRepairing:
		return Descriptor{Label: "Repairing", Icon: "wrench", Color: "orange"}
	case StatusWaitingApproval:
		return Descriptor{Label: "Waiting for approval", Icon: "clock", Color: "purple"}
	case StatusRepaired:
		return Descriptor{Label: "Repaired", Icon: "check-circle", Color: "green"}
	case StatusTotalLoss:
		return Descriptor{Label: "Total loss", Icon: "x-circle", Color: "red"}
	case StatusReturned:
		return Descriptor{Label: "Returned", Icon: "truck", Color: "gray"}
	default:
		return unknownDescriptor
	}
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	return Describe(s) != unknownDescriptor
}

// Terminal reports whether no further action can move the machine.
func (s Status) Terminal() bool {
	return s == StatusReturned
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, v)
	}
	return s, nil
}

// Valid reports whether a is a known approval state, including ApprovalNone.
func (a ApprovalStatus) Valid() bool {
	switch a {
	case ApprovalNone, ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}
