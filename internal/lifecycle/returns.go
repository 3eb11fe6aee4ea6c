package lifecycle

import "sort"

// Candidate is the part of a machine a return package plan needs.
type Candidate struct {
	ID         string
	Status     Status
	BranchID   string
	BranchName string
}

// BranchGroup is the set of machines travelling back to one origin branch.
// Each group becomes its own return order.
type BranchGroup struct {
	BranchID   string   `json:"branchId"`
	BranchName string   `json:"branchName"`
	MachineIDs []string `json:"machineIds"`
}

// ReturnPlan is the result of checking a selection before creating a package.
type ReturnPlan struct {
	Groups     []BranchGroup `json:"groups"`
	Ineligible []string      `json:"ineligible,omitempty"`
}

// Ready reports whether the selection can be submitted as is.
func (p ReturnPlan) Ready() bool {
	return len(p.Groups) > 0 && len(p.Ineligible) == 0
}

// PlanReturnPackage groups eligible candidates by origin branch. Groups are
// ordered by branch id; machines keep selection order within a group.
func PlanReturnPackage(candidates []Candidate) ReturnPlan {
	var plan ReturnPlan
	index := make(map[string]int)
	for _, c := range candidates {
		if !ReturnPackageEligible(c.Status) {
			plan.Ineligible = append(plan.Ineligible, c.ID)
			continue
		}
		i, ok := index[c.BranchID]
		if !ok {
			i = len(plan.Groups)
			index[c.BranchID] = i
			plan.Groups = append(plan.Groups, BranchGroup{BranchID: c.BranchID, BranchName: c.BranchName})
		}
		plan.Groups[i].MachineIDs = append(plan.Groups[i].MachineIDs, c.ID)
	}
	sort.SliceStable(plan.Groups, func(i, j int) bool {
		return plan.Groups[i].BranchID < plan.Groups[j].BranchID
	})
	return plan
}
