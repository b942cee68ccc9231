package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// CourseRepository handles persistence of catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, course_number, institution_short_name, title, program_name, credits, is_active, created_at, updated_at`

// Find returns the course by its natural key, or nil when none exists.
func (r *CourseRepository) Find(ctx context.Context, courseNumber, institution string) (*models.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses WHERE course_number = $1 AND institution_short_name = $2`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, courseNumber, institution); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// Upsert inserts or updates a course keyed by (course_number, institution).
func (r *CourseRepository) Upsert(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.UpdatedAt = upsertTimestamp(course)
	const query = `INSERT INTO courses (id, course_number, institution_short_name, title, program_name, credits, is_active, created_at, updated_at)
        VALUES (:id, :course_number, :institution_short_name, :title, :program_name, :credits, :is_active, NOW(), :updated_at)
        ON CONFLICT (course_number, institution_short_name) DO UPDATE SET
            title = EXCLUDED.title,
            program_name = EXCLUDED.program_name,
            credits = EXCLUDED.credits,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}

// ListByInstitution returns the institution's courses ordered by number.
func (r *CourseRepository) ListByInstitution(ctx context.Context, institution string) ([]models.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses WHERE institution_short_name = $1 ORDER BY course_number`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, institution); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
