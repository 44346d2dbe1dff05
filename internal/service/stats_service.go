package service

import (
	"context"

	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/apperror"
)

// statsService implements ports.StatsService.
type statsService struct {
	eventRepo ports.EventRepository
}

// NewStatsService creates a new stats service.
func NewStatsService(eventRepo ports.EventRepository) ports.StatsService {
	return &statsService{eventRepo: eventRepo}
}

// EventStats returns processed-event counts grouped by type and outcome.
func (s *statsService) EventStats(ctx context.Context) ([]domain.EventTypeStat, error) {
	stats, err := s.eventRepo.Stats(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return stats, nil
}
