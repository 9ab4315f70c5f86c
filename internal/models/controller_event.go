package models

import "time"

// Event types written to the controller log.
const (
	EventStart       = "START"
	EventStop        = "STOP"
	EventStepAdvance = "STEP_ADVANCE"
	EventComplete    = "COMPLETE"
	EventSetpoint    = "SETPOINT"
	EventError       = "ERROR"
)

// ControllerEvent is a single log entry.
type ControllerEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | STEP_ADVANCE | COMPLETE | SETPOINT | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
