package repository

import (
	"context"
	"database/sql"
	"time"

	"auber_controller/internal/models"
	"auber_controller/internal/program"
)

// Authorization stores API accounts. GetByUsername returns (nil, nil) for an unknown name.
type Authorization interface {
	Create(ctx context.Context, u models.User) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

type StateRepo interface {
	Save(ctx context.Context, s models.ControllerState) error
	Load(ctx context.Context) (models.ControllerState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.ControllerEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControllerEvent, error)
}

// ProgramRepo stores named program records. Get returns (nil, nil) when the name is unknown.
type ProgramRepo interface {
	Save(ctx context.Context, r program.Record) error
	Get(ctx context.Context, name string) (*program.Record, error)
	List(ctx context.Context) ([]program.Record, error)
	Delete(ctx context.Context, name string) (bool, error)
}

type TelemetryRepo interface {
	Append(ctx context.Context, s models.TelemetrySample) error
	List(ctx context.Context, from, to time.Time, limit int) ([]models.TelemetrySample, error)
}

type Repository struct {
	StateRepo     StateRepo
	EventRepo     EventRepo
	ProgramRepo   ProgramRepo
	TelemetryRepo TelemetryRepo
	Auth          Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:     NewStateSQLite(db),
		EventRepo:     NewEventSQLite(db),
		ProgramRepo:   NewProgramSQLite(db),
		TelemetryRepo: NewTelemetrySQLite(db),
		Auth:          NewUserRepository(db),
	}
}
