package program

import (
	"errors"
	"fmt"
)

const (
	// MaxSteps is the number of step slots the instrument program grid has.
	MaxSteps = 10

	// CustomName names a program assembled interactively rather than loaded.
	CustomName = "Custom"

	secondsPerHour = 3600.0
)

var (
	ErrInvalidProgram  = errors.New("invalid program")
	ErrProgramComplete = errors.New("program complete: no next step")
)

// Program is an ordered list of steps with a cursor on the current one.
// Steps are fixed after Load; only Custom programs grow through Append.
type Program struct {
	name    string
	steps   []Step
	current int
	total   float64 // seconds, recomputed on Append
	bounds  Bounds
	custom  bool
}

// Load validates steps and builds a program positioned on its first step.
func Load(name string, steps []Step, bounds Bounds) (*Program, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: %q has no steps", ErrInvalidProgram, name)
	}
	if len(steps) > MaxSteps {
		return nil, fmt.Errorf("%w: %q has %d steps, max %d", ErrInvalidProgram, name, len(steps), MaxSteps)
	}
	for i, s := range steps {
		if err := bounds.validate(i, s); err != nil {
			return nil, err
		}
		if err := checkRampDelta(steps, i); err != nil {
			return nil, err
		}
	}

	p := &Program{
		name:   name,
		steps:  append([]Step(nil), steps...),
		bounds: bounds,
	}
	p.total = sumSeconds(p.steps)
	return p, nil
}

// NewCustom returns an empty, growable program named "Custom".
func NewCustom(bounds Bounds) *Program {
	return &Program{name: CustomName, bounds: bounds, custom: true}
}

// checkRampDelta rejects a ramp whose target equals the previous step's target.
// The first step's origin is the live temperature, so it can only be checked at run start.
func checkRampDelta(steps []Step, i int) error {
	if i == 0 || steps[i].Operation != OpRamp {
		return nil
	}
	if steps[i].TargetC == steps[i-1].TargetC {
		return fmt.Errorf("%w: step %d ramps to %.1f which is already the previous target", ErrInvalidProgram, i+1, steps[i].TargetC)
	}
	return nil
}

func sumSeconds(steps []Step) float64 {
	var total float64
	for _, s := range steps {
		total += s.DurationSeconds()
	}
	return total
}

// Append adds a validated step to a Custom program and refreshes the cached total.
func (p *Program) Append(s Step) error {
	if !p.custom {
		return fmt.Errorf("%w: %q is a saved program and cannot be edited", ErrInvalidProgram, p.name)
	}
	if len(p.steps) >= MaxSteps {
		return fmt.Errorf("%w: custom program is full (%d steps)", ErrInvalidProgram, MaxSteps)
	}
	i := len(p.steps)
	if err := p.bounds.validate(i, s); err != nil {
		return err
	}
	if err := checkRampDelta(append(p.steps[:i:i], s), i); err != nil {
		return err
	}
	p.steps = append(p.steps, s)
	p.total = sumSeconds(p.steps)
	return nil
}

// ReadyToRun reports whether the program can be handed to a runner.
func (p *Program) ReadyToRun() error {
	if len(p.steps) == 0 || p.steps[0].Operation == OpNone {
		return fmt.Errorf("%w: first step must be Ramp or Soak", ErrInvalidProgram)
	}
	return nil
}

func (p *Program) Name() string   { return p.name }
func (p *Program) Len() int       { return len(p.steps) }
func (p *Program) Index() int     { return p.current }
func (p *Program) IsCustom() bool { return p.custom }

// Steps returns a copy of the step list.
func (p *Program) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Step returns the i-th step and false when no such step exists.
func (p *Program) Step(i int) (Step, bool) {
	if i < 0 || i >= len(p.steps) {
		return Step{}, false
	}
	return p.steps[i], true
}

// CurrentStep returns the step under the cursor.
func (p *Program) CurrentStep() Step {
	if len(p.steps) == 0 {
		return Step{Operation: OpNone}
	}
	return p.steps[p.current]
}

// HasNext is true while the cursor is before the last step.
func (p *Program) HasNext() bool {
	return p.current < len(p.steps)-1
}

// Advance moves the cursor forward by one step.
func (p *Program) Advance() (Step, error) {
	if !p.HasNext() {
		return Step{}, ErrProgramComplete
	}
	p.current++
	return p.steps[p.current], nil
}

// Rewind puts the cursor back on the first step for a new run.
func (p *Program) Rewind() {
	p.current = 0
}

// TotalDuration is the sum of all step durations in seconds.
func (p *Program) TotalDuration() float64 {
	return p.total
}

// CompletedDuration is the nominal length of the steps before the cursor, in seconds.
func (p *Program) CompletedDuration() float64 {
	return sumSeconds(p.steps[:p.current])
}

// ProgressFraction is elapsed/total clamped to [0,1] to absorb timer drift.
func (p *Program) ProgressFraction(elapsedSeconds float64) float64 {
	if p.total <= 0 {
		return 0
	}
	f := elapsedSeconds / p.total
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
