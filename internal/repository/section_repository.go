package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// SectionRepository handles persistence of course sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = `id, course_number, term_code, section_number, institution_short_name, instructor_email,
        enrolled, withdrawn, passed, failed_incomplete, cannot_reconcile, is_active, created_at, updated_at`

// Find returns the section by its natural key, or nil when none exists.
func (r *SectionRepository) Find(ctx context.Context, courseNumber, termCode, sectionNumber, institution string) (*models.CourseSection, error) {
	const query = `SELECT ` + sectionColumns + ` FROM course_sections
        WHERE course_number = $1 AND term_code = $2 AND section_number = $3 AND institution_short_name = $4`
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, courseNumber, termCode, sectionNumber, institution); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find section: %w", err)
	}
	return &section, nil
}

// Upsert inserts or updates a section keyed by (course, term, section, institution).
func (r *SectionRepository) Upsert(ctx context.Context, section *models.CourseSection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	section.UpdatedAt = upsertTimestamp(section)
	const query = `INSERT INTO course_sections (id, course_number, term_code, section_number, institution_short_name,
            instructor_email, enrolled, withdrawn, passed, failed_incomplete, cannot_reconcile, is_active, created_at, updated_at)
        VALUES (:id, :course_number, :term_code, :section_number, :institution_short_name,
            :instructor_email, :enrolled, :withdrawn, :passed, :failed_incomplete, :cannot_reconcile, :is_active, NOW(), :updated_at)
        ON CONFLICT (course_number, term_code, section_number, institution_short_name) DO UPDATE SET
            instructor_email = EXCLUDED.instructor_email,
            enrolled = EXCLUDED.enrolled,
            withdrawn = EXCLUDED.withdrawn,
            passed = EXCLUDED.passed,
            failed_incomplete = EXCLUDED.failed_incomplete,
            cannot_reconcile = EXCLUDED.cannot_reconcile,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}
	return nil
}

// ListByInstitution returns the institution's sections ordered by natural key.
func (r *SectionRepository) ListByInstitution(ctx context.Context, institution string) ([]models.CourseSection, error) {
	const query = `SELECT ` + sectionColumns + ` FROM course_sections
        WHERE institution_short_name = $1 ORDER BY course_number, term_code, section_number`
	var sections []models.CourseSection
	if err := r.db.SelectContext(ctx, &sections, query, institution); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}
