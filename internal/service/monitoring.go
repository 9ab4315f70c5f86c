package service

import (
	"context"
	"time"

	"auber_controller/internal/device"
	"auber_controller/internal/models"
	"auber_controller/internal/repository"
	"auber_controller/internal/runner"
)

type MonitoringService struct {
	stateRepo repository.StateRepo
}

func NewMonitoringService(stateRepo repository.StateRepo) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo}
}

// GetState returns the latest persisted controller snapshot.
// Before the loop has saved anything it returns an IDLE baseline.
func (s *MonitoringService) GetState(ctx context.Context) (models.ControllerState, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.ControllerState{}, err
	}
	if state.ID == 0 {
		return s.baselineState(), nil
	}
	state.UpdatedAt = toUTC(state.UpdatedAt)
	return state, nil
}

// baselineState is what the instrument reports on power-up.
func (s *MonitoringService) baselineState() models.ControllerState {
	return models.ControllerState{
		ID:           1, // single-row table
		Status:       string(runner.StateIdle),
		TemperatureC: device.AmbientC,
		SetpointC:    device.InitialSetpointC,
		UpdatedAt:    time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
