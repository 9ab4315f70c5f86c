package service

import "time"

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "STOP", "STEP_ADVANCE", "COMPLETE", "SETPOINT", "ERROR"
}

// TelemetryFilter selects a window of samples for the plot.
type TelemetryFilter struct {
	From  time.Time
	To    time.Time
	Limit int // <= 0 means the repository default
}
