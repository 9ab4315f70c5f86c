package runner

import (
	"errors"
	"fmt"
	"math"

	"auber_controller/internal/program"
)

// State is the runner lifecycle state.
type State string

const (
	StateIdle     State = "IDLE"
	StateRunning  State = "RUNNING"
	StateComplete State = "COMPLETE"
)

// NudgeC is the setpoint change applied per ramp sub-interval.
const NudgeC = 0.1

var (
	ErrNotRunning    = errors.New("runner: no program is running")
	ErrAlreadyActive = errors.New("runner: a program is already running")
	ErrElapsedBack   = errors.New("runner: elapsed time went backwards")
	ErrNoProgram     = errors.New("runner: program is nil")
)

// Action says what the caller must do with a Command.
type Action string

const (
	ActionHold        Action = "HOLD"
	ActionSetpoint    Action = "SETPOINT"
	ActionStepAdvance Action = "STEP_ADVANCE"
	ActionComplete    Action = "COMPLETE"
)

// Command is the outcome of a start, tick or advance.
// When Write is set the caller sends Setpoint to the device before acting on Action.
type Command struct {
	Action    Action  `json:"action"`
	Write     bool    `json:"write"`
	Setpoint  float64 `json:"setpoint_c,omitempty"`
	Nudges    int     `json:"nudges,omitempty"`
	StepIndex int     `json:"step_index"`
	Progress  float64 `json:"progress"`
}

// RunState is the timing state of the step in progress.
type RunState struct {
	StepIndex         int     `json:"step_index"`
	ElapsedInStep     float64 `json:"elapsed_in_step"`     // s
	ElapsedTotal      float64 `json:"elapsed_total"`       // s, wall time across steps
	RampRateThreshold float64 `json:"ramp_rate_threshold"` // s, next nudge instant
	RampStepSize      float64 `json:"ramp_step_size"`      // °C
	RampSign          float64 `json:"ramp_sign"`
	RampTarget        float64 `json:"ramp_target"`
	RampOrigin        float64 `json:"ramp_origin"`
	StepTime          float64 `json:"step_time"` // s between nudges
	NudgesApplied     int     `json:"nudges_applied"`
	NudgesTotal       int     `json:"nudges_total"`
}

// Runner drives one program through its steps. It is not safe for concurrent use;
// only the loop that owns it may call into it.
type Runner struct {
	state   State
	program *program.Program
	run     *RunState
}

// New returns an idle runner.
func New() *Runner {
	return &Runner{state: StateIdle}
}

func (r *Runner) State() State { return r.state }

// Program returns the program being executed, or nil when idle.
func (r *Runner) Program() *program.Program { return r.program }

// RunState returns a copy of the timing state; ok is false when idle.
func (r *Runner) RunState() (RunState, bool) {
	if r.run == nil {
		return RunState{}, false
	}
	return *r.run, true
}

// Start begins executing p from its first step.
func (r *Runner) Start(p *program.Program, currentTemperature float64) (RunState, Command, error) {
	if p == nil {
		return RunState{}, Command{}, ErrNoProgram
	}
	if r.state == StateRunning {
		return RunState{}, Command{}, ErrAlreadyActive
	}
	if err := p.ReadyToRun(); err != nil {
		return RunState{}, Command{}, err
	}
	p.Rewind()

	rs := enterStep(p, currentTemperature, 0)
	r.program = p
	r.run = &rs
	r.state = StateRunning
	return rs, r.entryCommand(&rs), nil
}

// Stop discards the run. Calling it while idle does nothing.
func (r *Runner) Stop() {
	r.state = StateIdle
	r.program = nil
	r.run = nil
}

// Tick evaluates the current step at elapsedInStep seconds and commits the result.
func (r *Runner) Tick(elapsedInStep, currentSetpoint float64) (Command, error) {
	return r.TickApply(elapsedInStep, currentSetpoint, nil)
}

// TickApply is Tick with a commit hook: apply runs before any state is changed,
// and if it fails the runner keeps its previous state so the next tick resumes cleanly.
func (r *Runner) TickApply(elapsedInStep, currentSetpoint float64, apply func(Command) error) (Command, error) {
	if r.state != StateRunning {
		return Command{}, ErrNotRunning
	}
	if elapsedInStep < r.run.ElapsedInStep {
		return Command{}, fmt.Errorf("%w: %.3fs < %.3fs", ErrElapsedBack, elapsedInStep, r.run.ElapsedInStep)
	}

	next := *r.run
	step := r.program.CurrentStep()
	duration := step.DurationSeconds()
	done := elapsedInStep >= duration

	next.ElapsedTotal += elapsedInStep - next.ElapsedInStep
	next.ElapsedInStep = elapsedInStep

	cmd := Command{Action: ActionHold, StepIndex: next.StepIndex}
	if step.Operation == program.OpRamp {
		if n := next.catchUp(elapsedInStep, done); n > 0 {
			cmd.Write = true
			cmd.Nudges = n
			cmd.Setpoint = roundTenth(currentSetpoint + float64(n)*next.RampStepSize*next.RampSign)
			cmd.Action = ActionSetpoint
		}
	}

	state := r.state
	if done {
		if r.program.HasNext() {
			cmd.Action = ActionStepAdvance
		} else {
			cmd.Action = ActionComplete
			state = StateComplete
		}
	}
	cmd.Progress = r.progress(&next)

	if apply != nil {
		if err := apply(cmd); err != nil {
			return cmd, err
		}
	}
	*r.run = next
	r.state = state
	return cmd, nil
}

// Advance moves to the next step after a StepAdvance, using the setpoint the device
// currently holds as the origin of a following ramp.
func (r *Runner) Advance(currentSetpoint float64) (Command, error) {
	if r.state != StateRunning {
		return Command{}, ErrNotRunning
	}
	total := r.run.ElapsedTotal
	if _, err := r.program.Advance(); err != nil {
		return Command{}, err
	}
	rs := enterStep(r.program, currentSetpoint, r.program.Index())
	rs.ElapsedTotal = total
	r.run = &rs
	return r.entryCommand(&rs), nil
}

// Progress is the completed fraction of the whole program.
func (r *Runner) Progress() float64 {
	switch r.state {
	case StateComplete:
		return 1
	case StateRunning:
		return r.progress(r.run)
	}
	return 0
}

// StepRemaining is the time left in the current step in seconds.
func (r *Runner) StepRemaining() float64 {
	if r.run == nil {
		return 0
	}
	left := r.program.CurrentStep().DurationSeconds() - r.run.ElapsedInStep
	return math.Max(left, 0)
}

// progress uses nominal durations for completed steps so the value is continuous at step
// boundaries and reaches 1 exactly when the last step's time is up.
func (r *Runner) progress(rs *RunState) float64 {
	step := r.program.CurrentStep()
	inStep := math.Min(rs.ElapsedInStep, step.DurationSeconds())
	return r.program.ProgressFraction(r.program.CompletedDuration() + inStep)
}

func (r *Runner) entryCommand(rs *RunState) Command {
	cmd := Command{Action: ActionHold, StepIndex: rs.StepIndex, Progress: r.progress(rs)}
	step := r.program.CurrentStep()
	switch step.Operation {
	case program.OpSoak:
		cmd.Action, cmd.Write, cmd.Setpoint = ActionSetpoint, true, step.TargetC
	case program.OpRamp:
		if rs.StepIndex == 0 {
			cmd.Action, cmd.Write, cmd.Setpoint = ActionSetpoint, true, rs.RampOrigin
		}
		if rs.NudgesTotal == 0 {
			cmd.Action, cmd.Write, cmd.Setpoint = ActionSetpoint, true, step.TargetC
		}
	}
	return cmd
}

// enterStep builds the timing state for the step under the program cursor.
func enterStep(p *program.Program, origin float64, index int) RunState {
	step := p.CurrentStep()
	rs := RunState{
		StepIndex:    index,
		RampStepSize: NudgeC,
		RampTarget:   step.TargetC,
		RampOrigin:   roundTenth(origin),
	}
	if step.Operation != program.OpRamp {
		return rs
	}

	delta := step.TargetC - rs.RampOrigin
	rs.RampSign = 1
	if delta < 0 {
		rs.RampSign = -1
	}
	rs.NudgesTotal = int(math.Round(math.Abs(delta) / NudgeC))
	if rs.NudgesTotal == 0 {
		// already at target: hold it for the step duration
		return rs
	}
	rs.StepTime = step.DurationSeconds() / (math.Abs(delta) * 10)
	rs.RampRateThreshold = rs.StepTime
	return rs
}

// catchUp applies every nudge whose threshold has been crossed. On the final tick of the
// step all remaining nudges are flushed so the ramp lands on its target.
func (rs *RunState) catchUp(elapsed float64, final bool) int {
	n := 0
	for rs.NudgesApplied < rs.NudgesTotal && (final || elapsed >= rs.RampRateThreshold) {
		rs.NudgesApplied++
		rs.RampRateThreshold += rs.StepTime
		n++
	}
	return n
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
