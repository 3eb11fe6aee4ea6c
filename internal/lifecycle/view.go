package lifecycle

// ApprovalNotice tells the operator where a cost approval stands.
type ApprovalNotice struct {
	Status         ApprovalStatus `json:"status"`
	RepairMayBegin bool           `json:"repairMayBegin"`
	Message        string         `json:"message"`
}

// View is the presentation model of a machine: how to show its status and
// which actions to offer.
type View struct {
	Status     Status          `json:"status"`
	Descriptor Descriptor      `json:"descriptor"`
	Actions    []Action        `json:"actions"`
	Approval   *ApprovalNotice `json:"approval,omitempty"`
	Terminal   bool            `json:"terminal"`
}

// Inspect builds the view for a machine in status s with approval state a.
func Inspect(s Status, a ApprovalStatus) View {
	return View{
		Status:     s,
		Descriptor: Describe(s),
		Actions:    Resolve(s, a),
		Approval:   notice(s, a),
		Terminal:   s.Terminal(),
	}
}

func notice(s Status, a ApprovalStatus) *ApprovalNotice {
	if a == ApprovalNone {
		return nil
	}
	n := &ApprovalNotice{Status: a}
	switch a {
	case ApprovalPending:
		n.Message = "Waiting for the branch to respond to the cost request"
	case ApprovalApproved:
		n.Message = "Cost approved"
		if s == StatusWaitingApproval {
			n.RepairMayBegin = true
			n.Message = "Cost approved, repair may begin"
		}
	case ApprovalRejected:
		n.Message = "Cost rejected by the branch"
	default:
		n.Message = "Unknown approval state"
	}
	return n
}
