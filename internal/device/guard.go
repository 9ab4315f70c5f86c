package device

import (
	"context"

	"auber_controller/internal/logger"
)

// Guard enforces the instrument setpoint ceiling in front of any Link.
type Guard struct {
	Link
	limit float64
	log   *logger.Logger
}

// NewGuard wraps link; a limit of zero disables the check.
func NewGuard(link Link, limit float64, log *logger.Logger) *Guard {
	if log == nil {
		log = logger.Nop()
	}
	return &Guard{Link: link, limit: limit, log: log}
}

// Limit returns the configured ceiling in °C.
func (g *Guard) Limit() float64 { return g.limit }

// WriteSetpoint ignores values above the ceiling and reports the setpoint already held.
func (g *Guard) WriteSetpoint(ctx context.Context, c float64) (float64, error) {
	if g.limit > 0 && c > g.limit {
		g.log.Warnw("device_setpoint_rejected", "requested_c", c, "limit_c", g.limit)
		return g.Link.ReadSetpoint(ctx)
	}
	return g.Link.WriteSetpoint(ctx, c)
}
