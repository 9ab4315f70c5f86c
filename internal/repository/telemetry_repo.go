package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"auber_controller/internal/models"
)

const (
	insertTelemetrySQL = `INSERT INTO telemetry (sampled_at, temp_c, setpoint_c, power_pct) VALUES (?, ?, ?, ?)`
	selectTelemetrySQL = `SELECT id, sampled_at, temp_c, setpoint_c, power_pct FROM telemetry`

	// DefaultTelemetryLimit caps List when the caller passes no limit.
	DefaultTelemetryLimit = 5000
)

// TelemetrySQLite keeps the temperature/setpoint/power history drawn by the plot.
type TelemetrySQLite struct {
	db *sql.DB
}

func NewTelemetrySQLite(db *sql.DB) *TelemetrySQLite { return &TelemetrySQLite{db: db} }

var _ TelemetryRepo = (*TelemetrySQLite)(nil)

func (r *TelemetrySQLite) Append(ctx context.Context, s models.TelemetrySample) error {
	at := s.SampledAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertTelemetrySQL,
		at.UTC().Format(sqliteTimestamp), s.TemperatureC, s.SetpointC, s.PowerPct)
	if err != nil {
		return fmt.Errorf("append telemetry: %w", err)
	}
	return nil
}

// List returns samples in [from, to] oldest first; zero bounds are open and limit <= 0 means the default.
func (r *TelemetrySQLite) List(ctx context.Context, from, to time.Time, limit int) ([]models.TelemetrySample, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "sampled_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimestamp))
	}
	if !to.IsZero() {
		conds = append(conds, "sampled_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimestamp))
	}
	if limit <= 0 {
		limit = DefaultTelemetryLimit
	}

	q := selectTelemetrySQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY sampled_at ASC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	defer rows.Close()

	out := make([]models.TelemetrySample, 0, 256)
	for rows.Next() {
		var s models.TelemetrySample
		if err := rows.Scan(&s.ID, &s.SampledAt, &s.TemperatureC, &s.SetpointC, &s.PowerPct); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		s.SampledAt = s.SampledAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	return out, nil
}
