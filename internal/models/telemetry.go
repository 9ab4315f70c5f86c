package models

import "time"

// TelemetrySample is one polled reading, the row the plot is drawn from.
type TelemetrySample struct {
	ID           int64     `json:"id"`
	SampledAt    time.Time `json:"sampled_at"`
	TemperatureC float64   `json:"temperature_c"`
	SetpointC    float64   `json:"setpoint_c"`
	PowerPct     float64   `json:"power_pct"`
}
