package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"auber_controller/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	controllerStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO controller_state (id, status, program, step_index, step_count, operation,
			temp_c, setpoint_c, power_pct, step_remaining_s, progress_pct, simulated, errors, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			program=excluded.program,
			step_index=excluded.step_index,
			step_count=excluded.step_count,
			operation=excluded.operation,
			temp_c=excluded.temp_c,
			setpoint_c=excluded.setpoint_c,
			power_pct=excluded.power_pct,
			step_remaining_s=excluded.step_remaining_s,
			progress_pct=excluded.progress_pct,
			simulated=excluded.simulated,
			errors=excluded.errors,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, status, program, step_index, step_count, operation,
			temp_c, setpoint_c, power_pct, step_remaining_s, progress_pct, simulated, errors, updated_at
		FROM controller_state WHERE id=?
	`
)

// marshalErrorCodes converts the slice to a JSON string.
func marshalErrorCodes(codes []string) (string, error) {
	b, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalErrorCodes parses a JSON string into a slice.
func unmarshalErrorCodes(s string) ([]string, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(s), &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// Save upserts the single controller_state row.
func (r *StateSQLite) Save(ctx context.Context, state models.ControllerState) error {
	errorsJSONStr, err := marshalErrorCodes(state.ErrorCodes)
	if err != nil {
		return err
	}

	tsUTC := state.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		controllerStateRowID,
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
		errorsJSONStr,
		tsUTC,
	)
	return err
}

// Load fetches the controller_state row; a zero state (ID 0) means nothing was saved yet.
func (r *StateSQLite) Load(ctx context.Context) (models.ControllerState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, controllerStateRowID)

	var (
		s             models.ControllerState
		programName   sql.NullString
		operation     sql.NullString
		errorsJSONStr sql.NullString
	)
	if err := row.Scan(
		&s.ID,
		&s.Status,
		&programName,
		&s.StepIndex,
		&s.StepCount,
		&operation,
		&s.TemperatureC,
		&s.SetpointC,
		&s.PowerPct,
		&s.StepRemainingSeconds,
		&s.ProgressPct,
		&s.Simulated,
		&errorsJSONStr,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ControllerState{}, nil
		}
		return models.ControllerState{}, err
	}

	codes, err := unmarshalErrorCodes(errorsJSONStr.String)
	if err != nil {
		return models.ControllerState{}, err
	}
	s.Program = programName.String
	s.Operation = operation.String
	s.ErrorCodes = codes
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
