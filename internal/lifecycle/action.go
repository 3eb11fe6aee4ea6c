package lifecycle

import "strings"

// ActionKind names an operator action.
type ActionKind string

const (
	ActionAssignTechnician       ActionKind = "assign-technician"
	ActionBeginInspection        ActionKind = "begin-inspection"
	ActionStartRepair            ActionKind = "start-repair"
	ActionRequestApproval        ActionKind = "request-approval"
	ActionMarkTotalLoss          ActionKind = "mark-total-loss"
	ActionCompleteRepair         ActionKind = "complete-repair"
	ActionViewApprovalStatus     ActionKind = "view-approval-status"
	ActionReturnToBranch         ActionKind = "return-to-branch"
	ActionIncludeInReturnPackage ActionKind = "include-in-return-package"
)

// RepairType selects whether a repair is billed to the branch.
type RepairType string

const (
	RepairFree RepairType = "FREE"
	RepairPaid RepairType = "PAID"
)

// Valid reports whether t is FREE or PAID.
func (t RepairType) Valid() bool {
	return t == RepairFree || t == RepairPaid
}

// Action is a single entry of the resolved action list. RepairType is set
// only for start-repair.
type Action struct {
	Kind       ActionKind `json:"kind"`
	RepairType RepairType `json:"repairType,omitempty"`
}

func (a Action) String() string {
	if a.RepairType != "" {
		return string(a.Kind) + "(" + string(a.RepairType) + ")"
	}
	return string(a.Kind)
}

// ChangesState reports whether performing the action asks the backend to
// mutate the machine.
func (a Action) ChangesState() bool {
	return a.Kind != ActionViewApprovalStatus
}

// JournalType is the upper snake case name used for journal entries.
func (k ActionKind) JournalType() string {
	return strings.ToUpper(strings.ReplaceAll(string(k), "-", "_"))
}

// Resolve returns the ordered list of actions legal for a machine in status s
// whose approval request is in state approval. The returned slice is owned by
// the caller.
func Resolve(s Status, approval ApprovalStatus) []Action {
	switch s {
	case StatusNew:
		return []Action{
			{Kind: ActionAssignTechnician},
			{Kind: ActionBeginInspection},
		}
	case StatusUnderInspection:
		actions := []Action{
			{Kind: ActionStartRepair, RepairType: RepairFree},
			{Kind: ActionStartRepair, RepairType: RepairPaid},
		}
		// one pending approval per machine
		if approval != ApprovalPending {
			actions = append(actions, Action{Kind: ActionRequestApproval})
		}
		return append(actions, Action{Kind: ActionMarkTotalLoss})
	case StatusRepairing:
		return []Action{{Kind: ActionCompleteRepair}}
	case StatusWaitingApproval:
		return []Action{{Kind: ActionViewApprovalStatus}}
	case StatusRepaired:
		return []Action{{Kind: ActionReturnToBranch}}
	case StatusTotalLoss:
		return []Action{{Kind: ActionIncludeInReturnPackage}}
	default:
		return []Action{}
	}
}

// Allows reports whether an action of the given kind is offered for s.
func Allows(s Status, approval ApprovalStatus, kind ActionKind) bool {
	for _, a := range Resolve(s, approval) {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Target returns the status the backend reports after a successful action of
// kind performed from status from. ok is false when the action is not part of
// the lifecycle for that status.
func Target(from Status, kind ActionKind) (Status, bool) {
	switch {
	case from == StatusNew && kind == ActionAssignTechnician:
		return StatusNew, true
	case from == StatusNew && kind == ActionBeginInspection:
		return StatusUnderInspection, true
	case from == StatusUnderInspection && kind == ActionStartRepair:
		return StatusRepairing, true
	case from == StatusUnderInspection && kind == ActionRequestApproval:
		return StatusWaitingApproval, true
	case from == StatusUnderInspection && kind == ActionMarkTotalLoss:
		return StatusTotalLoss, true
	case from == StatusRepairing && kind == ActionCompleteRepair:
		return StatusRepaired, true
	case from == StatusRepaired && kind == ActionReturnToBranch:
		return StatusReturned, true
	case (from == StatusRepaired || from == StatusTotalLoss) && kind == ActionIncludeInReturnPackage:
		return StatusReturned, true
	default:
		return "", false
	}
}

// ApprovalOutcome lists the statuses the backend may move a WAITING_APPROVAL
// machine to once its approval is resolved.
func ApprovalOutcome(a ApprovalStatus) []Status {
	switch a {
	case ApprovalApproved:
		return []Status{StatusRepairing}
	case ApprovalRejected:
		return []Status{StatusUnderInspection, StatusTotalLoss}
	default:
		return nil
	}
}

// ReturnPackageEligible reports whether a machine in status s may be selected
// for a batch return package.
func ReturnPackageEligible(s Status) bool {
	return s == StatusRepaired || s == StatusTotalLoss
}
