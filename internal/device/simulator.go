package device

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ----------- Simulation constants -----------
const (
	AmbientC          = 24.0 // °C
	InitialSetpointC  = 24.5 // °C, what the instrument reports on power-up
	HeatRateCPerSec   = 3.0  // °C per second toward a higher setpoint
	CoolRateCPerSec   = 0.5  // °C per second toward a lower setpoint
	NoiseC            = 0.1  // °C peak sensor noise
	fullPowerGapC     = 10.0 // °C below setpoint at which output saturates
	maxSimulatedPower = 100.0
)

// Simulator stands in for the instrument when no serial link is available.
// The setpoint is stored locally and the temperature chases it at a bounded rate.
type Simulator struct {
	mu       sync.Mutex
	setpoint float64
	temp     float64
	last     time.Time
	now      func() time.Time
	rnd      *rand.Rand
	closed   bool
}

// NewSimulator returns a simulator at ambient temperature.
func NewSimulator() *Simulator {
	return newSimulator(time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newSimulator(now func() time.Time, rnd *rand.Rand) *Simulator {
	return &Simulator{
		setpoint: InitialSetpointC,
		temp:     AmbientC,
		last:     now(),
		now:      now,
		rnd:      rnd,
	}
}

func (s *Simulator) ReadTemperature(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	s.advance()
	noise := 0.0
	if s.rnd != nil {
		noise = (s.rnd.Float64()*2 - 1) * NoiseC
	}
	return roundTenth(s.temp + noise), nil
}

func (s *Simulator) ReadSetpoint(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return s.setpoint, nil
}

// ReadPower is proportional to how far the temperature lags the setpoint.
func (s *Simulator) ReadPower(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	s.advance()
	gap := s.setpoint - s.temp
	if gap <= 0 {
		return 0, nil
	}
	return math.Round(math.Min(gap/fullPowerGapC, 1) * maxSimulatedPower), nil
}

func (s *Simulator) ReadAlarm(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 0, s.ready(ctx)
}

func (s *Simulator) WriteSetpoint(ctx context.Context, c float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	s.advance()
	s.setpoint = roundTenth(c)
	return s.setpoint, nil
}

func (s *Simulator) Simulated() bool { return true }

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Simulator) ready(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// advance moves the temperature toward the setpoint for the time since the last call.
func (s *Simulator) advance() {
	now := s.now()
	elapsed := now.Sub(s.last).Seconds()
	s.last = now
	if elapsed <= 0 {
		return
	}
	switch {
	case s.temp < s.setpoint:
		s.temp = math.Min(s.temp+HeatRateCPerSec*elapsed, s.setpoint)
	case s.temp > s.setpoint:
		s.temp = math.Max(s.temp-CoolRateCPerSec*elapsed, s.setpoint)
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
