package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"auber_controller/internal/device"
	"auber_controller/internal/logger"
	"auber_controller/internal/models"
	"auber_controller/internal/program"
	"auber_controller/internal/repository"
	"auber_controller/internal/runner"

	"github.com/google/uuid"
)

// Error codes carried in the controller snapshot.
const (
	CodeAlarm1      = "ALARM1"
	CodeAlarm2      = "ALARM2"
	CodeReadFailed  = "READ_FAILED"
	CodeWriteFailed = "WRITE_FAILED"
)

var (
	ErrProgramRunning  = errors.New("a program is running; stop it first")
	ErrLoopStopped     = errors.New("controller loop is not running")
	ErrInvalidSetpoint = errors.New("invalid setpoint")
)

// controlRequest is a call executed on the loop goroutine.
type controlRequest struct {
	fn   func(ctx context.Context) error
	done chan error
}

// ControllerService owns the device link and the runner. Only the Run goroutine touches
// either of them; HTTP callers reach it through requests.
type ControllerService struct {
	link      device.Link
	programs  Programs
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	telemetry repository.TelemetryRepo
	bounds    program.Bounds
	log       *logger.Logger
	now       func() time.Time

	requests chan controlRequest
	running  atomic.Bool
	stopped  chan struct{}

	// loop-owned
	runner        *runner.Runner
	stepStartedAt time.Time
	pendingWrite  *float64
	last          models.ControllerState
}

func NewControllerService(link device.Link, programs Programs, repos *repository.Repository,
	bounds program.Bounds, log *logger.Logger) *ControllerService {
	if log == nil {
		log = logger.Nop()
	}
	return &ControllerService{
		link:      link,
		programs:  programs,
		stateRepo: repos.StateRepo,
		eventRepo: repos.EventRepo,
		telemetry: repos.TelemetryRepo,
		bounds:    bounds,
		log:       log.Named("controller"),
		now:       time.Now,
		requests:  make(chan controlRequest),
		stopped:   make(chan struct{}),
		runner:    runner.New(),
	}
}

// Run ticks at the given interval until ctx is canceled, serving control requests between ticks.
// It must be called at most once.
func (s *ControllerService) Run(ctx context.Context, tick time.Duration) {
	s.running.Store(true)
	defer close(s.stopped)
	defer s.running.Store(false)

	t := time.NewTicker(tick)
	defer t.Stop()

	s.log.Infow("controller_loop_started", "tick", tick.String(), "simulated", s.link.Simulated())
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("controller_loop_stopped")
			return
		case req := <-s.requests:
			req.done <- req.fn(ctx)
		case <-t.C:
			if err := s.tick(ctx); err != nil {
				s.log.Warnw("controller_tick_skipped", "err", err)
			}
		}
	}
}

// submit runs fn on the loop goroutine and waits for its result.
func (s *ControllerService) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.running.Load() {
		return ErrLoopStopped
	}
	req := controlRequest{fn: fn, done: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunProgram starts the stored program with that name.
func (s *ControllerService) RunProgram(ctx context.Context, name string) error {
	p, err := s.programs.Load(ctx, name)
	if err != nil {
		return err
	}
	return s.submit(ctx, func(ctx context.Context) error { return s.start(ctx, p) })
}

// RunCustom starts a one-off program entered by hand.
func (s *ControllerService) RunCustom(ctx context.Context, steps []program.Step) error {
	p := program.NewCustom(s.bounds)
	for _, st := range steps {
		if err := p.Append(st); err != nil {
			return err
		}
	}
	return s.submit(ctx, func(ctx context.Context) error { return s.start(ctx, p) })
}

func (s *ControllerService) StopProgram(ctx context.Context) error {
	return s.submit(ctx, s.stop)
}

// SetSetpoint writes a single setpoint when no program is running and returns what the
// instrument holds afterwards.
func (s *ControllerService) SetSetpoint(ctx context.Context, c float64) (float64, error) {
	if math.IsNaN(c) || math.IsInf(c, 0) || c < s.bounds.MinTempC {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSetpoint, c)
	}
	var held float64
	err := s.submit(ctx, func(ctx context.Context) error {
		if s.runner.State() == runner.StateRunning {
			return ErrProgramRunning
		}
		got, err := s.link.WriteSetpoint(ctx, c)
		if err != nil {
			return err
		}
		held = got
		s.snapshot(ctx, s.last.TemperatureC, got, s.last.PowerPct, s.last.ErrorCodes)
		s.event(ctx, models.EventSetpoint, fmt.Sprintf("Setpoint set to %.1f °C", got),
			map[string]any{"requested_c": c, "held_c": got})
		return nil
	})
	return held, err
}

func (s *ControllerService) start(ctx context.Context, p *program.Program) error {
	if s.runner.State() == runner.StateRunning {
		return ErrProgramRunning
	}
	temp, err := s.link.ReadTemperature(ctx)
	if err != nil {
		return fmt.Errorf("read temperature before start: %w", err)
	}

	_, cmd, err := s.runner.Start(p, temp)
	if err != nil {
		return err
	}
	sp := s.last.SetpointC
	if cmd.Write {
		if sp, err = s.link.WriteSetpoint(ctx, cmd.Setpoint); err != nil {
			s.runner.Stop()
			return fmt.Errorf("write start setpoint: %w", err)
		}
	}
	s.stepStartedAt = s.now()
	s.pendingWrite = nil

	s.log.Infow("program_started", "program", p.Name(), "steps", p.Len(),
		"total_hours", p.TotalDuration()/3600, "start_temp_c", temp)
	s.event(ctx, models.EventStart, fmt.Sprintf("Program %s started", p.Name()), map[string]any{
		"program":      p.Name(),
		"steps":        p.Len(),
		"total_hours":  p.TotalDuration() / 3600,
		"start_temp_c": temp,
	})
	s.snapshot(ctx, temp, sp, s.last.PowerPct, nil)
	return nil
}

func (s *ControllerService) stop(ctx context.Context) error {
	prev := s.runner.State()
	name := ""
	if p := s.runner.Program(); p != nil {
		name = p.Name()
	}
	s.runner.Stop()
	s.pendingWrite = nil

	if prev == runner.StateRunning {
		s.log.Infow("program_stopped", "program", name)
		s.event(ctx, models.EventStop, fmt.Sprintf("Program %s stopped", name), map[string]any{"program": name})
	}
	s.snapshot(ctx, s.last.TemperatureC, s.last.SetpointC, s.last.PowerPct, nil)
	return nil
}

// tick polls the instrument, records a sample and advances a running program.
// A failed read skips the tick so the runner never acts on a substituted value.
func (s *ControllerService) tick(ctx context.Context) error {
	temp, err := s.link.ReadTemperature(ctx)
	if err != nil {
		return s.readFailed(ctx, "temperature", err)
	}
	sp, err := s.link.ReadSetpoint(ctx)
	if err != nil {
		return s.readFailed(ctx, "setpoint", err)
	}
	power, err := s.link.ReadPower(ctx)
	if err != nil {
		return s.readFailed(ctx, "power", err)
	}

	var codes []string
	alarm, err := s.link.ReadAlarm(ctx)
	if err != nil {
		s.log.Warnw("controller_alarm_read_failed", "err", err)
	}
	if alarm&0x1 != 0 {
		codes = append(codes, CodeAlarm1)
	}
	if alarm&0x2 != 0 {
		codes = append(codes, CodeAlarm2)
	}

	now := s.now()
	if err := s.telemetry.Append(ctx, models.TelemetrySample{
		SampledAt: now, TemperatureC: temp, SetpointC: sp, PowerPct: power,
	}); err != nil {
		s.log.Warnw("telemetry_append_failed", "err", err)
	}

	var driveErr error
	if s.runner.State() == runner.StateRunning {
		sp, driveErr = s.drive(ctx, now, sp)
		if driveErr != nil {
			codes = append(codes, CodeWriteFailed)
		}
	}
	s.snapshot(ctx, temp, sp, power, codes)
	return driveErr
}

// drive runs one runner tick against the device and returns the setpoint it now holds.
func (s *ControllerService) drive(ctx context.Context, now time.Time, sp float64) (float64, error) {
	if s.pendingWrite != nil {
		got, err := s.link.WriteSetpoint(ctx, *s.pendingWrite)
		if err != nil {
			return sp, fmt.Errorf("retry step setpoint: %w", err)
		}
		s.pendingWrite = nil
		sp = got
	}

	elapsed := now.Sub(s.stepStartedAt).Seconds()
	cmd, err := s.runner.TickApply(elapsed, sp, func(c runner.Command) error {
		if !c.Write {
			return nil
		}
		got, err := s.link.WriteSetpoint(ctx, c.Setpoint)
		if err != nil {
			return err
		}
		sp = got
		return nil
	})
	if err != nil {
		return sp, fmt.Errorf("runner tick at %.1fs: %w", elapsed, err)
	}
	if cmd.Nudges > 0 {
		s.log.Debugw("ramp_nudge", "step_index", cmd.StepIndex, "nudges", cmd.Nudges, "setpoint_c", sp)
	}

	p := s.runner.Program()
	switch cmd.Action {
	case runner.ActionStepAdvance:
		entry, err := s.runner.Advance(sp)
		if err != nil {
			return sp, err
		}
		s.stepStartedAt = now
		step := p.CurrentStep()
		s.log.Infow("program_step_advance", "program", p.Name(), "step_index", entry.StepIndex,
			"operation", step.Operation, "target_c", step.TargetC)
		s.event(ctx, models.EventStepAdvance,
			fmt.Sprintf("Step %d of %d: %s to %.1f °C", entry.StepIndex+1, p.Len(), step.Operation, step.TargetC),
			map[string]any{"program": p.Name(), "step_index": entry.StepIndex, "origin_c": sp})
		if entry.Write {
			got, err := s.link.WriteSetpoint(ctx, entry.Setpoint)
			if err != nil {
				target := entry.Setpoint
				s.pendingWrite = &target
				return sp, fmt.Errorf("write step setpoint: %w", err)
			}
			sp = got
		}
	case runner.ActionComplete:
		s.log.Infow("program_complete", "program", p.Name(), "final_setpoint_c", sp)
		s.event(ctx, models.EventComplete, fmt.Sprintf("Program %s completed", p.Name()),
			map[string]any{"program": p.Name(), "final_setpoint_c": sp})
	}
	return sp, nil
}

func (s *ControllerService) readFailed(ctx context.Context, what string, err error) error {
	s.last.ErrorCodes = []string{CodeReadFailed}
	s.last.UpdatedAt = s.now().UTC()
	if serr := s.stateRepo.Save(ctx, s.last); serr != nil {
		s.log.Warnw("state_save_failed", "err", serr)
	}
	return fmt.Errorf("read %s: %w", what, err)
}

// snapshot stores the latest readings together with the run position.
func (s *ControllerService) snapshot(ctx context.Context, temp, sp, power float64, codes []string) {
	st := models.ControllerState{
		ID:           1,
		Status:       string(s.runner.State()),
		TemperatureC: temp,
		SetpointC:    sp,
		PowerPct:     power,
		ProgressPct:  math.Round(s.runner.Progress()*1000) / 10,
		Simulated:    s.link.Simulated(),
		ErrorCodes:   codes,
		UpdatedAt:    s.now().UTC(),
	}
	if p := s.runner.Program(); p != nil && s.runner.State() != runner.StateIdle {
		step := p.CurrentStep()
		st.Program = p.Name()
		st.StepIndex = p.Index()
		st.StepCount = p.Len()
		st.Operation = string(step.Operation)
		st.StepRemainingSeconds = math.Round(s.runner.StepRemaining())
	}
	s.last = st
	if err := s.stateRepo.Save(ctx, st); err != nil {
		s.log.Warnw("state_save_failed", "err", err)
	}
}

func (s *ControllerService) event(ctx context.Context, typ, desc string, meta map[string]any) {
	err := s.eventRepo.Append(ctx, models.ControllerEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Warnw("event_append_failed", "type", typ, "err", err)
	}
}
