package handlers

import (
	"errors"
	"net/http"

	"controlling_camera/internal/camera"
	"controlling_camera/internal/models"
	"controlling_camera/internal/orchestrator"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusAccepted = "accepted"

	errGetState        = "failed to load state"
	errListCameras     = "failed to load known cameras"
	errQueueBusy       = "control loop busy, retry shortly"
	errSubmitCommand   = "failed to submit command"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// submitted maps the fire-and-forget submit result to an HTTP response:
// 202 when queued, 503 when the command queue is full.
func (h *Handler) submitted(c *gin.Context, name string, err error) {
	if err != nil {
		if errors.Is(err, orchestrator.ErrQueueFull) {
			h.logAndJSONError(c, http.StatusServiceUnavailable, errQueueBusy, "command_queue_full", err, "command", name)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errSubmitCommand, "command_submit_failed", err, "command", name)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted, "command": name})
}

// Request DTO for opening a connection.
type connectRequest struct {
	IP          string `json:"ip" binding:"required"`
	MAC         string `json:"mac,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"` // pin the SSH host key when tunneling
}

func (r connectRequest) toTarget() camera.Target {
	return camera.Target{
		IP:          r.IP,
		MAC:         r.MAC,
		Username:    r.Username,
		Password:    r.Password,
		Fingerprint: r.Fingerprint,
	}
}

// Request DTO for property edits. Exactly one of value_index/raw is used;
// value_index addresses the property's allowed list, raw bypasses it.
type setPropertyRequest struct {
	ValueIndex *int   `json:"value_index,omitempty"`
	Raw        *int64 `json:"raw,omitempty"`
}

// ConnectRequest is an exported model for Swagger docs of the connect payload.
type ConnectRequest struct {
	// Camera address
	IP string `json:"ip" example:"192.0.2.10"`
	// MAC address, when known from discovery
	MAC string `json:"mac,omitempty" example:"02:00:5e:00:53:01"`
	// SSH tunnel credentials
	Username string `json:"username,omitempty" example:"camera"`
	Password string `json:"password,omitempty"`
	// Expected SSH host key fingerprint (SHA256:...)
	Fingerprint string `json:"fingerprint,omitempty"`
}

// SetPropertyRequest is an exported model for Swagger docs of the property payload.
type SetPropertyRequest struct {
	// Index into the property's allowed values
	ValueIndex *int `json:"value_index,omitempty" example:"3"`
	// Raw wire value, bypassing the allowed list
	Raw *int64 `json:"raw,omitempty" example:"800"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Connect to a camera
// @Description  Queues a connect; the outcome arrives on the update stream.
// @Tags         camera
// @Accept       json
// @Produce      json
// @Param        body  body   ConnectRequest  true  "Connection target"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/camera/connect [post]
// @Security     BearerAuth
func (h *Handler) connectCamera(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	h.submitted(c, "connect", h.services.Controller.Connect(req.toTarget()))
}

// @Summary      Disconnect
// @Tags         camera
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/camera/disconnect [post]
// @Security     BearerAuth
func (h *Handler) disconnectCamera(c *gin.Context) {
	h.submitted(c, "disconnect", h.services.Controller.Disconnect())
}

// @Summary      Last-known camera state
// @Tags         camera
// @Produce      json
// @Success      200  {object}  models.StateSnapshot
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/camera/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "camera_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Known cameras
// @Description  Cameras remembered from past discoveries, most recent first.
// @Tags         camera
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, cameras"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/camera/cameras [get]
// @Security     BearerAuth
func (h *Handler) listCameras(c *gin.Context) {
	ctx := c.Request.Context()
	cams, err := h.services.Registry.List(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListCameras, "camera_list_failed", err)
		return
	}
	if cams == nil {
		cams = []models.KnownCamera{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(cams), "cameras": cams})
}

// @Summary      Discover cameras
// @Tags         camera
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/camera/discover [post]
// @Security     BearerAuth
func (h *Handler) discoverCameras(c *gin.Context) {
	h.submitted(c, "discover", h.services.Controller.Discover())
}

// @Summary      Fetch SSH fingerprint
// @Description  Queues a host-key fetch for the target; result arrives as an ssh_fingerprint update.
// @Tags         camera
// @Accept       json
// @Produce      json
// @Param        body  body   ConnectRequest  true  "Target address and credentials"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/camera/fingerprint [post]
// @Security     BearerAuth
func (h *Handler) fetchFingerprint(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	h.submitted(c, "fetch_ssh_fingerprint", h.services.Controller.FetchFingerprint(req.toTarget()))
}

// @Summary      Re-sync all properties
// @Tags         camera
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/camera/sync [post]
// @Security     BearerAuth
func (h *Handler) syncProperties(c *gin.Context) {
	h.submitted(c, "sync_properties", h.services.Controller.SyncProperties())
}

// @Summary      Capture a still
// @Tags         camera
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/camera/capture [post]
// @Security     BearerAuth
func (h *Handler) capture(c *gin.Context) {
	h.submitted(c, "capture", h.services.Controller.Capture())
}

// @Summary      Start video recording
// @Tags         camera
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/camera/record/start [post]
// @Security     BearerAuth
func (h *Handler) startRecording(c *gin.Context) {
	h.submitted(c, "start_recording", h.services.Controller.StartRecording())
}

// @Summary      Stop video recording
// @Tags         camera
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/camera/record/stop [post]
// @Security     BearerAuth
func (h *Handler) stopRecording(c *gin.Context) {
	h.submitted(c, "stop_recording", h.services.Controller.StopRecording())
}

// @Summary      Half-press the shutter
// @Description  Engages autofocus; the camera reports AF status as warning updates.
// @Tags         camera
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/camera/af/half-press [post]
// @Security     BearerAuth
func (h *Handler) halfPressShutter(c *gin.Context) {
	h.submitted(c, "half_press_shutter", h.services.Controller.HalfPressShutter())
}

// @Summary      Release the shutter
// @Tags         camera
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/camera/af/release [post]
// @Security     BearerAuth
func (h *Handler) releaseShutter(c *gin.Context) {
	h.submitted(c, "release_shutter", h.services.Controller.ReleaseShutter())
}

// @Summary      Adjust a property
// @Description  Queues an edit for the debounced write pipeline. Provide value_index (into the allowed list) or raw.
// @Tags         camera
// @Accept       json
// @Produce      json
// @Param        code  path   string              true  "Property code"
// @Param        body  body   SetPropertyRequest  true  "New value"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/camera/properties/{code} [put]
// @Security     BearerAuth
func (h *Handler) setProperty(c *gin.Context) {
	code := models.PropertyCode(c.Param("code"))
	var req setPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	switch {
	case req.ValueIndex != nil && req.Raw != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide either value_index or raw, not both"})
	case req.ValueIndex != nil:
		h.submitted(c, "set_property", h.services.Controller.SetProperty(code, *req.ValueIndex))
	case req.Raw != nil:
		h.submitted(c, "set_property_raw", h.services.Controller.SetPropertyRaw(code, *req.Raw))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "value_index or raw is required"})
	}
}
