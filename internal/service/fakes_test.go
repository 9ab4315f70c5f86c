package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"auber_controller/internal/models"
	"auber_controller/internal/program"
	"auber_controller/internal/repository"
)

// memStateRepo keeps the last saved snapshot in memory.
type memStateRepo struct {
	mu      sync.Mutex
	state   models.ControllerState
	saves   int
	loadErr error
}

func (r *memStateRepo) Save(ctx context.Context, s models.ControllerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	r.saves++
	return nil
}

func (r *memStateRepo) Load(ctx context.Context) (models.ControllerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.loadErr
}

func (r *memStateRepo) last() models.ControllerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// fakeEventRepo records appended events and the parameters List was called with.
type fakeEventRepo struct {
	mu     sync.Mutex
	events []models.ControllerEvent
	err    error

	gotFrom time.Time
	gotTo   time.Time
	gotType string
	calls   int
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.ControllerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.ControllerEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom, f.gotTo, f.gotType = from, to, typ
	return f.events, f.err
}

func (f *fakeEventRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type memTelemetryRepo struct {
	mu      sync.Mutex
	samples []models.TelemetrySample
	err     error

	gotFrom  time.Time
	gotTo    time.Time
	gotLimit int
	calls    int
}

func (r *memTelemetryRepo) Append(ctx context.Context, s models.TelemetrySample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return r.err
}

func (r *memTelemetryRepo) List(ctx context.Context, from, to time.Time, limit int) ([]models.TelemetrySample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.gotFrom, r.gotTo, r.gotLimit = from, to, limit
	return r.samples, r.err
}

type memProgramRepo struct {
	recs map[string]program.Record
	err  error
}

func newMemProgramRepo() *memProgramRepo {
	return &memProgramRepo{recs: map[string]program.Record{}}
}

func (r *memProgramRepo) Save(ctx context.Context, rec program.Record) error {
	if r.err != nil {
		return r.err
	}
	r.recs[rec.Name] = rec
	return nil
}

func (r *memProgramRepo) Get(ctx context.Context, name string) (*program.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	rec, ok := r.recs[name]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *memProgramRepo) List(ctx context.Context) ([]program.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]program.Record, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memProgramRepo) Delete(ctx context.Context, name string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.recs[name]
	delete(r.recs, name)
	return ok, nil
}

// fakeLink is an instrument whose temperature only changes when the test says so.
type fakeLink struct {
	mu       sync.Mutex
	temp     float64
	setpoint float64
	power    float64
	alarm    int
	readErr  error
	writeErr error
	// writeHook, when set, can fail individual writes.
	writeHook func(c float64) error
	writes    []float64
}

func (l *fakeLink) ReadTemperature(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.temp, l.readErr
}

func (l *fakeLink) ReadSetpoint(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setpoint, l.readErr
}

func (l *fakeLink) ReadPower(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.power, l.readErr
}

func (l *fakeLink) ReadAlarm(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alarm, nil
}

func (l *fakeLink) WriteSetpoint(ctx context.Context, c float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return 0, l.writeErr
	}
	if l.writeHook != nil {
		if err := l.writeHook(c); err != nil {
			return 0, err
		}
	}
	l.setpoint = c
	l.writes = append(l.writes, c)
	return c, nil
}

func (l *fakeLink) Simulated() bool { return true }
func (l *fakeLink) Close() error    { return nil }

func (l *fakeLink) set(fn func(l *fakeLink)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}

func (l *fakeLink) currentSetpoint() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setpoint
}

type testRepos struct {
	state     *memStateRepo
	events    *fakeEventRepo
	telemetry *memTelemetryRepo
	programs  *memProgramRepo
}

func newTestRepos() (*repository.Repository, testRepos) {
	tr := testRepos{
		state:     &memStateRepo{},
		events:    &fakeEventRepo{},
		telemetry: &memTelemetryRepo{},
		programs:  newMemProgramRepo(),
	}
	return &repository.Repository{
		StateRepo:     tr.state,
		EventRepo:     tr.events,
		ProgramRepo:   tr.programs,
		TelemetryRepo: tr.telemetry,
	}, tr
}
