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

func TestRetryTracker_RecordFailure_Escalation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockAttemptStore(ctrl)
	tracker := NewRetryTracker(store, newTestLogger())

	perr := &domain.PaymentErrorDetail{Code: "card_declined", DeclineCode: "do_not_honor"}

	store.EXPECT().Increment(gomock.Any(), "pi_123").Return(2, nil)
	attempt, err := tracker.RecordFailure(context.Background(), "pi_123", perr)
	require.NoError(t, err)
	assert.Equal(t, 2, attempt.AttemptCount)
	assert.False(t, attempt.RequiresCardUpdate)
	assert.Equal(t, "card_declined", attempt.LastErrorCode)
	assert.Equal(t, "do_not_honor", attempt.LastDeclineCode)

	store.EXPECT().Increment(gomock.Any(), "pi_123").Return(3, nil)
	attempt, err = tracker.RecordFailure(context.Background(), "pi_123", perr)
	require.NoError(t, err)
	assert.True(t, attempt.RequiresCardUpdate)
}

func TestRetryTracker_RecordFailure_StoreDown_AssumesFirstAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockAttemptStore(ctrl)
	tracker := NewRetryTracker(store, newTestLogger())

	store.EXPECT().Increment(gomock.Any(), "pi_123").Return(0, assert.AnError)

	attempt, err := tracker.RecordFailure(context.Background(), "pi_123", nil)
	require.NoError(t, err, "counter outage must not block the notification")
	assert.Equal(t, 1, attempt.AttemptCount)
	assert.False(t, attempt.RequiresCardUpdate)
	assert.Equal(t, "unknown", attempt.LastErrorCode)
}

func TestRetryTracker_Reset(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockAttemptStore(ctrl)
	tracker := NewRetryTracker(store, newTestLogger())

	store.EXPECT().Reset(gomock.Any(), "pi_123").Return(nil)
	assert.NoError(t, tracker.Reset(context.Background(), "pi_123"))

	store.EXPECT().Reset(gomock.Any(), "pi_123").Return(assert.AnError)
	assert.Error(t, tracker.Reset(context.Background(), "pi_123"))
}
