package handlers

import (
	"errors"
	"net/http"

	"auber_controller/internal/program"
	"auber_controller/internal/repository"
	"auber_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK          = "ok"
	statusStarted     = "started"
	statusStopped     = "stopped"
	statusSetpointSet = "setpoint_set"
	statusSaved       = "saved"
	statusDeleted     = "deleted"

	errGetState        = "failed to load state"
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

// respondServiceError maps service errors to a status. Client errors carry the error text,
// anything unexpected is logged and answered with fallback.
func (h *Handler) respondServiceError(c *gin.Context, fallback, logKey string, err error, kv ...interface{}) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		h.logAndJSONError(c, code, fallback, logKey, err, kv...)
		return
	}
	if h.log != nil {
		h.log.Infow(logKey, append([]interface{}{"err", err}, kv...)...)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrProgramNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrProgramRunning),
		errors.Is(err, repository.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrLoopStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, program.ErrInvalidProgram),
		errors.Is(err, service.ErrInvalidSetpoint),
		errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrUnknownEventType),
		errors.Is(err, service.ErrInvalidLimit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetState(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
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
