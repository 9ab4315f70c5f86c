package models

import "time"

// ControllerState is the latest snapshot of the instrument and the program run.
type ControllerState struct {
	ID                   int       `json:"id"`
	Status               string    `json:"status"`            // IDLE | RUNNING | COMPLETE
	Program              string    `json:"program,omitempty"` // program name while running
	StepIndex            int       `json:"step_index"`        // zero-based
	StepCount            int       `json:"step_count,omitempty"`
	Operation            string    `json:"operation,omitempty"` // Ramp | Soak
	TemperatureC         float64   `json:"temperature_c"`       // °C
	SetpointC            float64   `json:"setpoint_c"`          // °C
	PowerPct             float64   `json:"power_pct"`           // %
	StepRemainingSeconds float64   `json:"step_remaining_seconds"`
	ProgressPct          float64   `json:"progress_pct"` // 0..100
	Simulated            bool      `json:"simulated"`
	ErrorCodes           []string  `json:"error_codes,omitempty"` // e.g. ["ALARM1", "READ_FAILED"]
	UpdatedAt            time.Time `json:"updated_at"`
}
