package handlers

import (
	"maintenance_center/internal/config"
	"maintenance_center/internal/logger"
	"maintenance_center/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	limit    config.RateLimitConfig
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, limit config.RateLimitConfig) *Handler {
	return &Handler{services: services, log: log, limit: limit}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Machine feed over WebSocket, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	limited := h.mutationLimiter()
	{
		api.GET("/statuses", h.listStatuses)
		api.GET("/technicians", h.listTechnicians)
		h.registerMachineRoutes(api, limited)
		h.registerReturnPackageRoutes(api, limited)
		api.GET("/journal", h.getJournal)
	}
}

func (h *Handler) registerMachineRoutes(api *gin.RouterGroup, limited gin.HandlerFunc) {
	machines := api.Group("/machines")
	{
		machines.GET("", h.listMachines)
		machines.GET("/:id", h.getMachine)

		actions := machines.Group("/:id", limited)
		actions.POST("/assign", h.assignTechnician)
		actions.POST("/inspect", h.beginInspection)
		actions.POST("/start-repair", h.startRepair)
		actions.POST("/request-approval", h.requestApproval)
		actions.POST("/total-loss", h.markTotalLoss)
		actions.POST("/complete-repair", h.completeRepair)
		actions.POST("/return", h.returnToBranch)
	}
}

func (h *Handler) registerReturnPackageRoutes(api *gin.RouterGroup, limited gin.HandlerFunc) {
	packages := api.Group("/return-packages", limited)
	{
		packages.POST("/preview", h.previewReturnPackage)
		packages.POST("", h.createReturnPackage)
	}
}

// mutationLimiter returns the per-client limiter for state-changing routes,
// or a pass-through when limiting is disabled.
func (h *Handler) mutationLimiter() gin.HandlerFunc {
	if h.limit.PerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := h.limit.Burst
	if burst <= 0 {
		burst = 1
	}
	return rateLimiter(rate.Limit(h.limit.PerSecond), burst)
}
