package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// OutcomeRepository handles persistence of course learning outcomes.
type OutcomeRepository struct {
	db *sqlx.DB
}

// NewOutcomeRepository constructs the repository.
func NewOutcomeRepository(db *sqlx.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

const outcomeColumns = `id, course_number, clo_number, institution_short_name, description, term_code, section_number,
        students_took, students_passed, status, created_at, updated_at`

// Find returns the outcome by its natural key, or nil when none exists.
func (r *OutcomeRepository) Find(ctx context.Context, courseNumber, cloNumber, institution string) (*models.CourseOutcome, error) {
	const query = `SELECT ` + outcomeColumns + ` FROM course_outcomes
        WHERE course_number = $1 AND clo_number = $2 AND institution_short_name = $3`
	var outcome models.CourseOutcome
	if err := r.db.GetContext(ctx, &outcome, query, courseNumber, cloNumber, institution); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find outcome: %w", err)
	}
	return &outcome, nil
}

// FindByID returns the outcome by its row ID, or nil when none exists.
func (r *OutcomeRepository) FindByID(ctx context.Context, id string) (*models.CourseOutcome, error) {
	const query = `SELECT ` + outcomeColumns + ` FROM course_outcomes WHERE id = $1`
	var outcome models.CourseOutcome
	if err := r.db.GetContext(ctx, &outcome, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find outcome by id: %w", err)
	}
	return &outcome, nil
}

// Upsert inserts or updates an outcome keyed by (course, clo, institution).
func (r *OutcomeRepository) Upsert(ctx context.Context, outcome *models.CourseOutcome) error {
	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}
	outcome.UpdatedAt = upsertTimestamp(outcome)
	const query = `INSERT INTO course_outcomes (id, course_number, clo_number, institution_short_name, description,
            term_code, section_number, students_took, students_passed, status, created_at, updated_at)
        VALUES (:id, :course_number, :clo_number, :institution_short_name, :description,
            :term_code, :section_number, :students_took, :students_passed, :status, NOW(), :updated_at)
        ON CONFLICT (course_number, clo_number, institution_short_name) DO UPDATE SET
            description = EXCLUDED.description,
            term_code = EXCLUDED.term_code,
            section_number = EXCLUDED.section_number,
            students_took = EXCLUDED.students_took,
            students_passed = EXCLUDED.students_passed,
            status = EXCLUDED.status,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, outcome); err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

// ListByInstitution returns the institution's outcomes ordered by natural key.
func (r *OutcomeRepository) ListByInstitution(ctx context.Context, institution string) ([]models.CourseOutcome, error) {
	const query = `SELECT ` + outcomeColumns + ` FROM course_outcomes
        WHERE institution_short_name = $1 ORDER BY course_number, clo_number`
	var outcomes []models.CourseOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query, institution); err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return outcomes, nil
}

// UpdateStatus writes an outcome's review status. Legality of the move is
// the service's concern.
func (r *OutcomeRepository) UpdateStatus(ctx context.Context, id string, status models.OutcomeStatus) error {
	const query = `UPDATE course_outcomes SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update outcome status: %w", err)
	}
	return nil
}
