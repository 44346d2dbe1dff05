package service

import (
	"context"
	"testing"

	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestStatsService_EventStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEventRepository(ctrl)
	svc := NewStatsService(repo)

	repo.EXPECT().Stats(gomock.Any()).Return([]domain.EventTypeStat{
		{EventType: domain.EventInvoicePaid, Outcome: domain.OutcomeApplied, Count: 12},
	}, nil)

	stats, err := svc.EventStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(12), stats[0].Count)
}

func TestStatsService_EventStats_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEventRepository(ctrl)
	svc := NewStatsService(repo)

	repo.EXPECT().Stats(gomock.Any()).Return(nil, assert.AnError)

	_, err := svc.EventStats(context.Background())
	assert.Error(t, err)
}
