package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_number", "institution_short_name", "title", "program_name", "credits", "is_active", "created_at", "updated_at"}).
		AddRow("crs-1", "CS101", "nvcc", "Intro to Computing", "CS", 3, true, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT .+ FROM courses WHERE course_number = \$1 AND institution_short_name = \$2`).
		WithArgs("CS101", "nvcc").
		WillReturnRows(rows)

	course, err := repo.Find(context.Background(), "CS101", "nvcc")
	require.NoError(t, err)
	require.NotNil(t, course)
	require.Equal(t, "Intro to Computing", course.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindMissingReturnsNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM courses WHERE`).
		WithArgs("CS999", "nvcc").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	course, err := repo.Find(context.Background(), "CS999", "nvcc")
	require.NoError(t, err)
	require.Nil(t, course)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpsertAssignsIDAndSourceTimestamp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	src := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	course := &models.Course{
		CourseNumber:         "CS101",
		InstitutionShortName: "nvcc",
		Title:                "Intro to Computing",
		ProgramName:          "CS",
		Credits:              3,
		IsActive:             true,
		SourceUpdatedAt:      src,
	}

	mock.ExpectExec(`INSERT INTO courses .+ ON CONFLICT \(course_number, institution_short_name\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), course))
	require.NotEmpty(t, course.ID)
	require.Equal(t, src, course.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
