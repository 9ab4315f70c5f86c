package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"auber_controller/internal/models"
	"auber_controller/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

var stateColumns = []string{
	"id", "status", "program", "step_index", "step_count", "operation",
	"temp_c", "setpoint_c", "power_pct", "step_remaining_s", "progress_pct", "simulated", "errors", "updated_at",
}

func runningState() models.ControllerState {
	return models.ControllerState{
		Status:               "RUNNING",
		Program:              "GaAs",
		StepIndex:            1,
		StepCount:            4,
		Operation:            "Soak",
		TemperatureC:         649.8,
		SetpointC:            650,
		PowerPct:             37,
		StepRemainingSeconds: 3600,
		ProgressPct:          42.5,
		Simulated:            true,
		ErrorCodes:           []string{"ALARM1", "READ_FAILED"},
	}
}

func TestStateSQLite_Save_SetsUTCAndMarshalsErrors_WhenTimeZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)
	state := runningState()

	isUTCRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok || tm.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		return !tm.Before(now.Add(-5*time.Second)) && !tm.After(now.Add(5*time.Second))
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO controller_state")).
		WithArgs(
			1,
			state.Status,
			state.Program,
			state.StepIndex,
			state.StepCount,
			state.Operation,
			state.TemperatureC,
			state.SetpointC,
			state.PowerPct,
			state.StepRemainingSeconds,
			state.ProgressPct,
			state.Simulated,
			`["ALARM1","READ_FAILED"]`,
			isUTCRecent,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), state); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateSQLite_Save_ConvertsTimeToUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)

	loc := time.FixedZone("UTC-5", -5*60*60)
	state := models.ControllerState{Status: "IDLE", SetpointC: 24.5, UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, loc)}
	wantTS := state.UpdatedAt.UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO controller_state")).
		WithArgs(1, "IDLE", "", 0, 0, "", 0.0, 24.5, 0.0, 0.0, 0.0, false, "null", wantTS).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), state); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateSQLite_Save_ExecErrorPropagates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO controller_state")).
		WillReturnError(errors.New("db down"))

	if err := repo.Save(context.Background(), runningState()); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
}

func TestStateSQLite_Load_NoRowsReturnsZeroValueAndNilError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, program, step_index")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got.ID != 0 || got.Status != "" || got.ErrorCodes != nil {
		t.Fatalf("Load() expected zero state, got: %+v", got)
	}
}

func TestStateSQLite_Load_HappyPath_UnmarshalsAndUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)

	nonUTC := time.Date(2024, 2, 1, 8, 30, 0, 0, time.FixedZone("UTC-5", -5*60*60))
	rows := sqlmock.NewRows(stateColumns).
		AddRow(1, "RUNNING", "GaAs", 1, 4, "Soak", 649.8, 650.0, 37.0, 3600.0, 42.5, true,
			`["ALARM1","READ_FAILED"]`, nonUTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, program, step_index")).
		WithArgs(1).
		WillReturnRows(rows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	want := runningState()
	if got.ID != 1 ||
		got.Status != want.Status ||
		got.Program != want.Program ||
		got.StepIndex != want.StepIndex ||
		got.StepCount != want.StepCount ||
		got.Operation != want.Operation ||
		got.TemperatureC != want.TemperatureC ||
		got.SetpointC != want.SetpointC ||
		got.PowerPct != want.PowerPct ||
		got.StepRemainingSeconds != want.StepRemainingSeconds ||
		got.ProgressPct != want.ProgressPct ||
		!got.Simulated {
		t.Fatalf("Load() unexpected fields: %+v", got)
	}
	if got.UpdatedAt.Location() != time.UTC {
		t.Fatalf("Load() UpdatedAt not UTC: %v (%v)", got.UpdatedAt, got.UpdatedAt.Location())
	}
	if !equalStringSlices(got.ErrorCodes, want.ErrorCodes) {
		t.Fatalf("Load() ErrorCodes mismatch: got=%v want=%v", got.ErrorCodes, want.ErrorCodes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateSQLite_Load_NullProgramIsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)

	rows := sqlmock.NewRows(stateColumns).
		AddRow(1, "IDLE", nil, 0, 0, nil, 24.0, 24.5, 0.0, 0.0, 0.0, false, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, program, step_index")).
		WithArgs(1).
		WillReturnRows(rows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got.Program != "" || got.Operation != "" || got.ErrorCodes != nil {
		t.Fatalf("NULL columns must load as empty values, got %+v", got)
	}
}

func TestStateSQLite_Load_InvalidErrorsJSON_ReturnsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)

	rows := sqlmock.NewRows(stateColumns).
		AddRow(1, "IDLE", "", 0, 0, "", 10.0, 20.0, 0.0, 0.0, 0.0, false, `{not: "an array"}`, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, program, step_index")).
		WithArgs(1).
		WillReturnRows(rows)

	if _, err := repo.Load(context.Background()); err == nil {
		t.Fatalf("Load() expected error due to invalid errors JSON, got nil")
	}
}

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
