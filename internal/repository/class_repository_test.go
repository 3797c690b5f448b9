package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestClassRepositoryIncrementEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET current_enrollment = current_enrollment + 1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.IncrementEnrollment(context.Background(), "c1"))

	// Full class: the guarded UPDATE matches no rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET current_enrollment = current_enrollment + 1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.IncrementEnrollment(context.Background(), "c1"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryGetCapacity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	rows := sqlmock.NewRows([]string{"capacity", "current_enrollment", "waitlist_capacity"}).
		AddRow(30, 28, 10)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity, current_enrollment, waitlist_capacity FROM classes")).
		WithArgs("c1").
		WillReturnRows(rows)

	capacity, err := repo.GetCapacity(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 2, capacity.Available())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListPromotable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	rows := sqlmock.NewRows([]string{"id"}).AddRow("c1").AddRow("c2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.id FROM classes c")).
		WillReturnRows(rows)

	ids, err := repo.ListPromotable(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
