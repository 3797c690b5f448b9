package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/classboard/enrollment-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestWaitlistRepositoryInsertRanked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWaitlistRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(")).
		WithArgs("c1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE waitlist_entries SET position = position + 1")).
		WithArgs("c1", 2).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO waitlist_entries")).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", 2, 5, sqlmock.AnyArg(), 0.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &models.WaitlistEntry{
		StudentID: "s1",
		ClassID:   "c1",
		Priority:  5,
		AddedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.InsertRanked(context.Background(), entry))
	require.Equal(t, 2, entry.Position)
	require.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryRemoveRepacks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWaitlistRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id, position FROM waitlist_entries WHERE id = $1")).
		WithArgs("wl-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "position"}).AddRow("c1", 2))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE id = $1")).
		WithArgs("wl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE waitlist_entries SET position = position - 1")).
		WithArgs("c1", 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Remove(context.Background(), "wl-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryRemoveMissingIsNoOp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWaitlistRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id, position FROM waitlist_entries WHERE id = $1")).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	require.NoError(t, repo.Remove(context.Background(), "gone"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWaitlistRepository(db)
	added := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "position", "priority", "added_at", "notified_at", "notification_expires_at", "estimated_probability"}).
		AddRow("wl-1", "s1", "c1", 1, 0, added, nil, nil, 0.8)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, class_id, position")).
		WithArgs("s1", "c1").
		WillReturnRows(rows)

	entry, err := repo.FindActive(context.Background(), "s1", "c1")
	require.NoError(t, err)
	require.Equal(t, 1, entry.Position)
	require.Equal(t, 0.8, entry.EstimatedProbability)
	require.False(t, entry.IsNotified())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, class_id, position")).
		WithArgs("s2", "c1").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindActive(context.Background(), "s2", "c1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositorySetNotified(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWaitlistRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE waitlist_entries SET notified_at = $2")).
		WithArgs("wl-1", now, now.Add(48*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetNotified(context.Background(), "wl-1", now, now.Add(48*time.Hour)))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE waitlist_entries SET notified_at = $2")).
		WithArgs("gone", now, now.Add(48*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.SetNotified(context.Background(), "gone", now, now.Add(48*time.Hour)), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryListExpired(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWaitlistRepository(db)
	now := time.Now().UTC()
	notified := now.Add(-49 * time.Hour)
	expired := now.Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "position", "priority", "added_at", "notified_at", "notification_expires_at", "estimated_probability"}).
		AddRow("wl-1", "s1", "c1", 1, 0, notified, notified, expired, 0.8)
	mock.ExpectQuery(regexp.QuoteMeta("FROM waitlist_entries e WHERE e.notification_expires_at < $1")).
		WithArgs(now).
		WillReturnRows(rows)

	entries, err := repo.ListExpired(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "wl-1", entries[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
