package service

import (
	"context"
	"errors"

	"auber_controller/internal/models"
	"auber_controller/internal/repository"
)

// MaxTelemetryLimit bounds a single telemetry page.
const MaxTelemetryLimit = 20000

var ErrInvalidLimit = errors.New("invalid limit")

type TelemetryService struct {
	repo repository.TelemetryRepo
}

func NewTelemetryService(repo repository.TelemetryRepo) *TelemetryService {
	return &TelemetryService{repo: repo}
}

func (s *TelemetryService) List(ctx context.Context, f TelemetryFilter) ([]models.TelemetrySample, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	if f.Limit < 0 || f.Limit > MaxTelemetryLimit {
		return nil, ErrInvalidLimit
	}
	return s.repo.List(ctx, from, to, f.Limit)
}
