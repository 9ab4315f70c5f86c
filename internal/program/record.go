package program

import (
	"fmt"
	"strings"
)

// Slot is one persisted step position. An empty Operation marks an unused slot.
type Slot struct {
	Operation     string  `json:"operation,omitempty" yaml:"operation,omitempty"`
	TargetC       float64 `json:"target_c,omitempty" yaml:"target_c,omitempty"`
	DurationHours float64 `json:"duration_hours,omitempty" yaml:"duration_hours,omitempty"`
}

// Empty reports whether the slot holds no step.
func (s Slot) Empty() bool {
	op := strings.TrimSpace(s.Operation)
	return op == "" || op == string(OpNone)
}

// Record is the storage shape of a named program: up to MaxSteps ordered slots.
type Record struct {
	Name  string `json:"name" yaml:"name"`
	Slots []Slot `json:"slots" yaml:"slots"`
}

// RecordOf converts a step list into its persisted form, padding to MaxSteps empty slots.
func RecordOf(name string, steps []Step) Record {
	slots := make([]Slot, MaxSteps)
	for i, s := range steps {
		if i >= MaxSteps {
			break
		}
		slots[i] = Slot{Operation: string(s.Operation), TargetC: s.TargetC, DurationHours: s.DurationHours}
	}
	return Record{Name: name, Slots: slots}
}

// StepsOf reads slots in order and stops at the first empty one.
func (r Record) StepsOf() ([]Step, error) {
	if len(r.Slots) > MaxSteps {
		return nil, fmt.Errorf("%w: %q has %d slots, max %d", ErrInvalidProgram, r.Name, len(r.Slots), MaxSteps)
	}
	steps := make([]Step, 0, len(r.Slots))
	for _, sl := range r.Slots {
		if sl.Empty() {
			break
		}
		op, err := ParseOperation(sl.Operation)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Operation: op, TargetC: sl.TargetC, DurationHours: sl.DurationHours})
	}
	return steps, nil
}

// FromRecord parses a persisted record into a loaded program.
func FromRecord(r Record, bounds Bounds) (*Program, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: program name is empty", ErrInvalidProgram)
	}
	steps, err := r.StepsOf()
	if err != nil {
		return nil, err
	}
	return Load(name, steps, bounds)
}

// Presets are the programs shipped with the controller.
func Presets() []Record {
	return []Record{
		RecordOf("YBa2Cu3O7-x", []Step{
			{OpRamp, 950, 0.1},
			{OpSoak, 950, 2},
			{OpRamp, 800, 2},
			{OpRamp, 300, 10},
			{OpRamp, 25, 4},
		}),
		RecordOf("EuMnSb2", []Step{
			{OpRamp, 650, 3},
			{OpSoak, 650, 1},
			{OpRamp, 900, 3},
			{OpSoak, 900, 75},
			{OpRamp, 20, 3},
		}),
		RecordOf("GaAs", []Step{
			{OpRamp, 50, 0.12},
			{OpSoak, 50, 0.13},
			{OpRamp, 34, 0.1},
			{OpRamp, 25, 0.5},
		}),
		RecordOf("(δ-phase) Pu-Ga", []Step{
			{OpRamp, 639.4, 1},
			{OpSoak, 639.4, 0.3},
			{OpRamp, 25, 1},
		}),
	}
}
