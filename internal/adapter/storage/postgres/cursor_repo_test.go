package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRepo_Admit_Advances(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCursorRepo(mock)

	mock.ExpectExec("INSERT INTO aggregate_cursors").
		WithArgs("sub_123", 10).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	admitted, err := repo.Admit(context.Background(), "sub_123", 10)
	require.NoError(t, err)
	assert.True(t, admitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCursorRepo_Admit_RejectsStale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCursorRepo(mock)

	// Upsert WHERE clause filters the update: zero rows = stale event.
	mock.ExpectExec("INSERT INTO aggregate_cursors").
		WithArgs("sub_123", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	admitted, err := repo.Admit(context.Background(), "sub_123", 2)
	require.NoError(t, err)
	assert.False(t, admitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
