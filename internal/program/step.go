package program

import (
	"fmt"
	"strings"
)

// Operation is the kind of work a step performs.
type Operation string

const (
	OpNone Operation = "--"
	OpRamp Operation = "Ramp"
	OpSoak Operation = "Soak"
)

// ParseOperation accepts the persisted spellings ("Ramp", "RAMP", "soak", "--", "").
func ParseOperation(s string) (Operation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RAMP":
		return OpRamp, nil
	case "SOAK":
		return OpSoak, nil
	case "", "--", "NONE":
		return OpNone, nil
	default:
		return OpNone, fmt.Errorf("%w: unknown operation %q", ErrInvalidProgram, s)
	}
}

// Step is one (operation, target, duration) entry of a program.
type Step struct {
	Operation     Operation `json:"operation" yaml:"operation"`
	TargetC       float64   `json:"target_c" yaml:"target_c"`             // °C
	DurationHours float64   `json:"duration_hours" yaml:"duration_hours"` // h
}

// DurationSeconds converts the step duration to seconds.
func (s Step) DurationSeconds() float64 {
	return s.DurationHours * secondsPerHour
}

// Bounds are the instrument limits a step must respect.
type Bounds struct {
	MinTempC       float64
	MaxTempC       float64
	MaxDurationHrs float64 // zero means unbounded
}

// DefaultBounds matches the stock oven configuration.
func DefaultBounds() Bounds {
	return Bounds{MinTempC: -273.15, MaxTempC: 1500, MaxDurationHrs: 1000}
}

// validate checks a single step against the bounds.
func (b Bounds) validate(i int, s Step) error {
	switch s.Operation {
	case OpRamp, OpSoak:
	case OpNone:
		return fmt.Errorf("%w: step %d has no operation", ErrInvalidProgram, i+1)
	default:
		return fmt.Errorf("%w: step %d has unknown operation %q", ErrInvalidProgram, i+1, s.Operation)
	}
	if !(s.DurationHours > 0) {
		return fmt.Errorf("%w: step %d duration %.3fh must be positive", ErrInvalidProgram, i+1, s.DurationHours)
	}
	if b.MaxDurationHrs > 0 && s.DurationHours > b.MaxDurationHrs {
		return fmt.Errorf("%w: step %d duration %.3fh exceeds %.0fh", ErrInvalidProgram, i+1, s.DurationHours, b.MaxDurationHrs)
	}
	if s.TargetC < b.MinTempC || s.TargetC > b.MaxTempC {
		return fmt.Errorf("%w: step %d temperature %.1f outside [%.2f, %.1f]", ErrInvalidProgram, i+1, s.TargetC, b.MinTempC, b.MaxTempC)
	}
	return nil
}
