package handlers

import (
	"net/http"
	"strconv"

	"auber_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errLimitInvalid  = "invalid 'limit'; use a positive integer"
	errListTelemetry = "failed to load telemetry"
)

// @Summary      List telemetry
// @Description  Temperature, setpoint and output power samples in time order, one per controller tick.
// @Tags         telemetry
// @Produce      json
// @Param        from   query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        to     query   string  false  "End of range; date-only treated as end of day"
// @Param        limit  query   int     false  "Maximum samples (default 5000, max 20000)"
// @Success      200    {object}  map[string]interface{}  "count, samples"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/telemetry [get]
// @Security     BearerAuth
func (h *Handler) getTelemetry(c *gin.Context) {
	from, to, ok := parseRangeQuery(c)
	if !ok {
		return
	}
	limit := 0
	if qs := c.Query("limit"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
		limit = v
	}

	samples, err := h.services.Telemetry.List(c.Request.Context(), service.TelemetryFilter{
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		h.respondServiceError(c, errListTelemetry, "telemetry_list_failed", err, "from", from, "to", to, "limit", limit)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}
