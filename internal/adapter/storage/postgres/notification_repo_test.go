package postgres

import (
	"context"
	"testing"
	"time"

	"club-operations-core/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	n := &domain.Notification{
		UserEmail: "member@club.example",
		Type:      domain.NotificationPayment,
		Title:     "Payment issue",
		Message:   "We could not process your membership payment.",
		CreatedAt: now,
	}

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(n.UserEmail, string(n.Type), n.Title, n.Message, n.URL, n.RelatedID, n.RelatedType, n.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.Create(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_ListByEmail_UnreadOnly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM notifications WHERE user_email = lower.+AND read = FALSE").
		WithArgs("member@club.example", 50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_email", "type", "title", "message", "url", "related_id", "related_type", "read", "created_at"}).
			AddRow(int64(7), "member@club.example", domain.NotificationPayment, "Payment issue", "msg", nil, nil, nil, false, now))

	items, err := repo.ListByEmail(context.Background(), "member@club.example", true, 50)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].ID)
	assert.False(t, items[0].Read)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_CountUnread(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)

	mock.ExpectQuery("SELECT COUNT.+ FROM notifications").
		WithArgs("member@club.example").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.CountUnread(context.Background(), "member@club.example")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepo_MarkRead_ScopedToOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewNotificationRepo(mock)

	mock.ExpectExec("UPDATE notifications SET read = TRUE").
		WithArgs(int64(7), "other@club.example").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.MarkRead(context.Background(), 7, "other@club.example")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
