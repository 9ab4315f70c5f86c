package handlers

import (
	"auber_controller/internal/logger"
	"auber_controller/internal/service"

	_ "auber_controller/docs"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints; reads need any account, writes need an operator
	h.registerAPIRoutes(router)

	// State stream on the same port
	router.GET("/ws", h.userIdMiddleware, h.wsConnect)

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
	{
		h.registerProgramRoutes(api)
		h.registerControllerRoutes(api)
		h.registerHistoryRoutes(api)
	}
}

func (h *Handler) registerProgramRoutes(api *gin.RouterGroup) {
	programs := api.Group("/programs")
	{
		programs.GET("", h.listPrograms)
		// Body example: {"name":"Anneal","slots":[{"operation":"Ramp","target_c":400,"duration_hours":1}]}
		programs.POST("", h.requireOperator, h.saveProgram)
		programs.GET("/:name", h.getProgram)
		programs.DELETE("/:name", h.requireOperator, h.deleteProgram)
	}
}

func (h *Handler) registerControllerRoutes(api *gin.RouterGroup) {
	controller := api.Group("/controller")
	{
		// Body example: {"name":"Anneal"} or {"steps":[{"operation":"Soak","target_c":80,"duration_hours":0.5}]}
		controller.POST("/run", h.requireOperator, h.runProgram)
		controller.POST("/stop", h.requireOperator, h.stopProgram)
		controller.POST("/setpoint", h.requireOperator, h.setSetpoint)
		controller.GET("/state", h.getState)
	}
}

func (h *Handler) registerHistoryRoutes(api *gin.RouterGroup) {
	api.GET("/logs", h.getLogs)
	api.GET("/telemetry", h.getTelemetry)
}
