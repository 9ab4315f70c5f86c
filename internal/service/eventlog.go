package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auber_controller/internal/models"
	"auber_controller/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrUnknownEventType = errors.New("unknown event type")
)

var knownEventTypes = map[string]bool{
	models.EventStart:       true,
	models.EventStop:        true,
	models.EventStepAdvance: true,
	models.EventComplete:    true,
	models.EventSetpoint:    true,
	models.EventError:       true,
}

func normalizeEventType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// normalizeRange moves both bounds to UTC; a zero bound means open-ended.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	if !from.IsZero() {
		from = from.UTC()
	}
	if !to.IsZero() {
		to = to.UTC()
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	return from, to, nil
}

// List returns events in [From, To] of the given type, all types when Type is empty.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ControllerEvent, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	typ := normalizeEventType(f.Type)
	if typ != "" && !knownEventTypes[typ] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, f.Type)
	}
	return s.eventRepo.List(ctx, from, to, typ)
}
