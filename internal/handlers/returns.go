package handlers

import (
	"net/http"

	"maintenance_center/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

// @Summary      Preview return package
// @Description  Groups the selection by origin branch and lists machines that cannot be included.
// @Tags         return-packages
// @Accept       json
// @Produce      json
// @Param        body  body      lifecycle.ReturnPackageInput  true  "Selection"
// @Success      200   {object}  map[string]interface{}  "ready, plan"
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/return-packages/preview [post]
// @Security     BearerAuth
func (h *Handler) previewReturnPackage(c *gin.Context) {
	var in lifecycle.ReturnPackageInput
	if ok := h.bindJSONOrBadRequest(c, &in); !ok {
		return
	}
	plan, err := h.services.PreviewReturnPackage(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "return_package_preview_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": plan.Ready(), "plan": plan})
}

// @Summary      Create return package
// @Description  Creates one return order per origin branch. Every selected machine must be REPAIRED or TOTAL_LOSS.
// @Tags         return-packages
// @Accept       json
// @Produce      json
// @Param        body  body      lifecycle.ReturnPackageInput  true  "Selection and driver details"
// @Success      201   {object}  map[string]interface{}  "count, orders"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/return-packages [post]
// @Security     BearerAuth
func (h *Handler) createReturnPackage(c *gin.Context) {
	var in lifecycle.ReturnPackageInput
	if ok := h.bindJSONOrBadRequest(c, &in); !ok {
		return
	}
	orders, err := h.services.CreateReturnPackage(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "return_package_create_failed", err, "machines", len(in.MachineIDs))
		return
	}
	if h.log != nil {
		h.log.Infow("return_package_created", "orders", len(orders), "machines", len(in.MachineIDs))
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(orders), "orders": orders})
}
