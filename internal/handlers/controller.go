package handlers

import (
	"net/http"

	"auber_controller/internal/program"

	"github.com/gin-gonic/gin"
)

const (
	errRunProgram  = "failed to start program"
	errStopProgram = "failed to stop program"
	errSetpoint    = "failed to write setpoint"
)

// RunRequest starts either a stored program by name or a custom step list.
type RunRequest struct {
	// Name of a stored program. Leave empty to run Steps as the custom program.
	Name string `json:"name,omitempty" example:"Anneal"`
	// Steps entered by hand, used when Name is empty
	Steps []program.Step `json:"steps,omitempty"`
}

// SetpointRequest is the single-setpoint mode payload.
type SetpointRequest struct {
	SetpointC *float64 `json:"setpoint_c" binding:"required" example:"150"`
}

// @Summary      Run program
// @Description  Starts a stored program by name, or the steps given as the custom program. The first step starts from the current temperature.
// @Tags         controller
// @Accept       json
// @Produce      json
// @Param        body  body   RunRequest  true  "Program to run"
// @Success      200   {object}  map[string]interface{}  "status, program, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/controller/run [post]
// @Security     BearerAuth
func (h *Handler) runProgram(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()

	name := req.Name
	var err error
	if name != "" {
		err = h.services.Controller.RunProgram(ctx, name)
	} else {
		if len(req.Steps) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + "name or steps required"})
			return
		}
		name = program.CustomName
		err = h.services.Controller.RunCustom(ctx, req.Steps)
	}
	if err != nil {
		h.respondServiceError(c, errRunProgram, "controller_run_failed", err, "program", name)
		return
	}
	h.respondWithStatusAndState(c, statusStarted, gin.H{"program": name})
}

// @Summary      Stop program
// @Description  Stops the running program. The instrument keeps the last setpoint.
// @Tags         controller
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/controller/stop [post]
// @Security     BearerAuth
func (h *Handler) stopProgram(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Controller.StopProgram(ctx); err != nil {
		h.respondServiceError(c, errStopProgram, "controller_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStopped, gin.H{})
}

// @Summary      Set setpoint
// @Description  Single-setpoint mode. Refused while a program runs.
// @Tags         controller
// @Accept       json
// @Produce      json
// @Param        body  body   SetpointRequest  true  "Setpoint payload"
// @Success      200   {object}  map[string]interface{}  "status, setpoint_c, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/controller/setpoint [post]
// @Security     BearerAuth
func (h *Handler) setSetpoint(c *gin.Context) {
	var req SetpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	got, err := h.services.Controller.SetSetpoint(c.Request.Context(), *req.SetpointC)
	if err != nil {
		h.respondServiceError(c, errSetpoint, "controller_setpoint_failed", err, "setpoint_c", *req.SetpointC)
		return
	}
	h.respondWithStatusAndState(c, statusSetpointSet, gin.H{"setpoint_c": got})
}

// @Summary      Get controller state
// @Tags         controller
// @Produce      json
// @Success      200  {object}  models.ControllerState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/controller/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "controller_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
