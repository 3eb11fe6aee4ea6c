package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/service"

	"github.com/gin-gonic/gin"
)

// statusEntry describes one lifecycle status for the console legend.
type statusEntry struct {
	Status     lifecycle.Status     `json:"status"`
	Descriptor lifecycle.Descriptor `json:"descriptor"`
	Terminal   bool                 `json:"terminal"`
}

// @Summary      List lifecycle statuses
// @Description  Every machine status in workflow order with its label, icon and color.
// @Tags         machines
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "statuses"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/statuses [get]
// @Security     BearerAuth
func (h *Handler) listStatuses(c *gin.Context) {
	all := lifecycle.AllStatuses()
	out := make([]statusEntry, 0, len(all))
	for _, s := range all {
		out = append(out, statusEntry{Status: s, Descriptor: lifecycle.Describe(s), Terminal: s.Terminal()})
	}
	c.JSON(http.StatusOK, gin.H{"statuses": out})
}

// @Summary      List technicians
// @Tags         machines
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, items"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/technicians [get]
// @Security     BearerAuth
func (h *Handler) listTechnicians(c *gin.Context) {
	items, err := h.services.ListTechnicians(c.Request.Context())
	if err != nil {
		h.respondError(c, "technicians_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// @Summary      List machines
// @Description  Machines at the center with their resolved view and offered actions.
// @Tags         machines
// @Produce      json
// @Param        status    query   string  false  "Status filter"  Enums(NEW,UNDER_INSPECTION,REPAIRING,WAITING_APPROVAL,REPAIRED,TOTAL_LOSS,RETURNED)
// @Param        branchId  query   string  false  "Origin branch id"
// @Param        q         query   string  false  "Search by serial number or model"
// @Success      200  {object}  map[string]interface{}  "count, items"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/machines [get]
// @Security     BearerAuth
func (h *Handler) listMachines(c *gin.Context) {
	filter := centerapi.ListFilter{
		Status:   lifecycle.Status(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		BranchID: strings.TrimSpace(c.Query("branchId")),
		Search:   strings.TrimSpace(c.Query("q")),
	}
	items, err := h.services.ListMachines(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "machines_list_failed", err, "status", filter.Status, "branch_id", filter.BranchID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// @Summary      Get machine
// @Tags         machines
// @Produce      json
// @Param        id   path      string  true  "Machine id"
// @Success      200  {object}  service.MachineView
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/machines/{id} [get]
// @Security     BearerAuth
func (h *Handler) getMachine(c *gin.Context) {
	id := c.Param("id")
	m, err := h.services.GetMachine(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "machine_get_failed", err, "machine_id", id)
		return
	}
	c.JSON(http.StatusOK, m)
}

// bindOptionalJSON binds the body into dst; an empty body leaves dst untouched.
func (h *Handler) bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// runAction binds the action input and performs it for the machine in the path.
func runAction[T any](h *Handler, c *gin.Context, kind lifecycle.ActionKind,
	do func(ctx context.Context, id string, in T) (service.MachineView, error)) {
	var in T
	if !h.bindOptionalJSON(c, &in) {
		return
	}
	id := c.Param("id")
	m, err := do(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, "machine_action_failed", err, "machine_id", id, "action", kind)
		return
	}
	if h.log != nil {
		h.log.Infow("machine_action", "machine_id", id, "action", kind, "status", m.Status)
	}
	c.JSON(http.StatusOK, m)
}

// @Summary      Assign technician
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Machine id"
// @Param        body  body      lifecycle.AssignInput  true  "Technician"
// @Success      200   {object}  service.MachineView
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/machines/{id}/assign [post]
// @Security     BearerAuth
func (h *Handler) assignTechnician(c *gin.Context) {
	runAction(h, c, lifecycle.ActionAssignTechnician, h.services.AssignTechnician)
}

// @Summary      Begin inspection
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        id    path      string                  true  "Machine id"
// @Param        body  body      lifecycle.InspectInput  true  "Inspection findings"
// @Success      200   {object}  service.MachineView
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/machines/{id}/inspect [post]
// @Security     BearerAuth
func (h *Handler) beginInspection(c *gin.Context) {
	runAction(h, c, lifecycle.ActionBeginInspection, h.services.BeginInspection)
}

// @Summary      Start repair
// @Description  Moves an inspected machine into repair. repairType is FREE or PAID.
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        id    path      string                      true  "Machine id"
// @Param        body  body      lifecycle.StartRepairInput  true  "Repair details"
// @Success      200   {object}  service.MachineView
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/machines/{id}/start-repair [post]
// @Security     BearerAuth
func (h *Handler) startRepair(c *gin.Context) {
	runAction(h, c, lifecycle.ActionStartRepair, h.services.StartRepair)
}

// @Summary      Request cost approval
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        id    path      string                          true  "Machine id"
// @Param        body  body      lifecycle.RequestApprovalInput  true  "Cost request"
// @Success      200   {object}  service.MachineView
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/machines/{id}/request-approval [post]
// @Security     BearerAuth
func (h *Handler) requestApproval(c *gin.Context) {
	runAction(h, c, lifecycle.ActionRequestApproval, h.services.RequestApproval)
}

// @Summary      Mark total loss
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Machine id"
// @Param        body  body      lifecycle.TotalLossInput  true  "Reason"
// @Success      200   {object}  service.MachineView
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/machines/{id}/total-loss [post]
// @Security     BearerAuth
func (h *Handler) markTotalLoss(c *gin.Context) {
	runAction(h, c, lifecycle.ActionMarkTotalLoss, h.services.MarkTotalLoss)
}

// @Summary      Complete repair
// @Description  finalCost defaults to the machine's estimated cost when omitted.
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        id    path      string                         true   "Machine id"
// @Param        body  body      lifecycle.CompleteRepairInput  false  "Voucher"
// @Success      200   {object}  service.MachineView
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/machines/{id}/complete-repair [post]
// @Security     BearerAuth
func (h *Handler) completeRepair(c *gin.Context) {
	runAction(h, c, lifecycle.ActionCompleteRepair, h.services.CompleteRepair)
}

// @Summary      Return to branch
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true   "Machine id"
// @Param        body  body      lifecycle.ReturnInput  false  "Waybill"
// @Success      200   {object}  service.MachineView
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/machines/{id}/return [post]
// @Security     BearerAuth
func (h *Handler) returnToBranch(c *gin.Context) {
	runAction(h, c, lifecycle.ActionReturnToBranch, h.services.ReturnToBranch)
}
