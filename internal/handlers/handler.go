package handlers

import (
	"controlling_camera/internal/logger"
	"controlling_camera/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

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

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// WebSocket update stream + command channel — same port
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
	{
		h.registerCameraRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerCameraRoutes(api *gin.RouterGroup) {
	cam := api.Group("/camera")
	{
		cam.POST("/connect", h.connectCamera)
		cam.POST("/disconnect", h.disconnectCamera)
		cam.GET("/state", h.getState)
		cam.GET("/cameras", h.listCameras)
		cam.POST("/discover", h.discoverCameras)
		cam.POST("/fingerprint", h.fetchFingerprint)
		cam.POST("/sync", h.syncProperties)
		cam.POST("/capture", h.capture)
		cam.POST("/record/start", h.startRecording)
		cam.POST("/record/stop", h.stopRecording)
		cam.POST("/af/half-press", h.halfPressShutter)
		cam.POST("/af/release", h.releaseShutter)
		// Body example: {"value_index":3} or {"raw":800}
		cam.PUT("/properties/:code", h.setProperty)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
