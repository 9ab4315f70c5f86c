package service

import (
	"context"
	"io"
	"time"

	"auber_controller/internal/device"
	"auber_controller/internal/logger"
	"auber_controller/internal/models"
	"auber_controller/internal/program"
	"auber_controller/internal/repository"
)

// Authorization registers accounts and verifies the bearer tokens they sign in with.
type Authorization interface {
	SignUp(ctx context.Context, username, password string) (models.User, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (Identity, error)
}

// Programs manages the stored program library.
type Programs interface {
	List(ctx context.Context) ([]program.Record, error)
	Get(ctx context.Context, name string) (program.Record, error)
	Save(ctx context.Context, rec program.Record) error
	Delete(ctx context.Context, name string) error
	Load(ctx context.Context, name string) (*program.Program, error)
	SeedPresets(ctx context.Context) (int, error)
	Import(ctx context.Context, r io.Reader) (int, error)
	Export(ctx context.Context, w io.Writer, names ...string) error
}

// Controller starts and stops program runs and handles single-setpoint mode.
type Controller interface {
	RunProgram(ctx context.Context, name string) error
	RunCustom(ctx context.Context, steps []program.Step) error
	StopProgram(ctx context.Context) error
	SetSetpoint(ctx context.Context, c float64) (float64, error)
}

// Monitoring exposes the latest controller snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.ControllerState, error)
}

// EventLog exposes the append-only controller log with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControllerEvent, error)
}

// Telemetry exposes the sampled temperature/setpoint/power history.
type Telemetry interface {
	List(ctx context.Context, f TelemetryFilter) ([]models.TelemetrySample, error)
}

// Loop is the background tick loop. Stop it by canceling ctx.
type Loop interface {
	Run(ctx context.Context, tick time.Duration)
}

type Service struct {
	Programs
	Controller
	Monitoring
	EventLog
	Telemetry
	Loop
	Authorization
}

// Options carries the settings services take from configuration.
type Options struct {
	Bounds     program.Bounds
	SigningKey string
	TokenTTL   time.Duration
	SignupRole string
}

func NewService(repos *repository.Repository, link device.Link, opts Options, log *logger.Logger) *Service {
	programs := NewProgramService(repos.ProgramRepo, opts.Bounds)
	controller := NewControllerService(link, programs, repos, opts.Bounds, log)
	return &Service{
		Programs:      programs,
		Controller:    controller,
		Monitoring:    NewMonitoringService(repos.StateRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Telemetry:     NewTelemetryService(repos.TelemetryRepo),
		Loop:          controller,
		Authorization: NewAuthService(repos.Auth, opts.SigningKey, opts.TokenTTL, opts.SignupRole),
	}
}
