package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestPlanningRepositoryDemandByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPlanningRepository(db)
	rows := sqlmock.NewRows([]string{"course_code", "course_name", "section_count", "total_capacity", "total_enrollment", "total_waitlist"}).
		AddRow("CS101", "Intro to Computer Science", 3, 90, 85, 12).
		AddRow("CS200", "Data Structures", 2, 60, 58, 14)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.course_code,")).
		WithArgs("cs").
		WillReturnRows(rows)

	demand, err := repo.DemandByDepartment(context.Background(), "cs")
	require.NoError(t, err)
	require.Len(t, demand, 2)
	require.Equal(t, "CS101", demand[0].CourseCode)
	require.Equal(t, 3, demand[0].SectionCount)
	require.Equal(t, 14, demand[1].TotalWaitlist)
	require.NoError(t, mock.ExpectationsWereMet())
}
