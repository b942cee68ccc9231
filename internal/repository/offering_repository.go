package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// OfferingRepository handles persistence of course offerings.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

const offeringColumns = `id, course_number, term_code, institution_short_name, delivery_mode, is_active, created_at, updated_at`

// Find returns the offering by its natural key, or nil when none exists.
func (r *OfferingRepository) Find(ctx context.Context, courseNumber, termCode, institution string) (*models.CourseOffering, error) {
	const query = `SELECT ` + offeringColumns + ` FROM course_offerings
        WHERE course_number = $1 AND term_code = $2 AND institution_short_name = $3`
	var offering models.CourseOffering
	if err := r.db.GetContext(ctx, &offering, query, courseNumber, termCode, institution); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find offering: %w", err)
	}
	return &offering, nil
}

// Upsert inserts or updates an offering keyed by (course, term, institution).
func (r *OfferingRepository) Upsert(ctx context.Context, offering *models.CourseOffering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	offering.UpdatedAt = upsertTimestamp(offering)
	const query = `INSERT INTO course_offerings (id, course_number, term_code, institution_short_name, delivery_mode, is_active, created_at, updated_at)
        VALUES (:id, :course_number, :term_code, :institution_short_name, :delivery_mode, :is_active, NOW(), :updated_at)
        ON CONFLICT (course_number, term_code, institution_short_name) DO UPDATE SET
            delivery_mode = EXCLUDED.delivery_mode,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("upsert offering: %w", err)
	}
	return nil
}

// ListByInstitution returns the institution's offerings ordered by course and term.
func (r *OfferingRepository) ListByInstitution(ctx context.Context, institution string) ([]models.CourseOffering, error) {
	const query = `SELECT ` + offeringColumns + ` FROM course_offerings
        WHERE institution_short_name = $1 ORDER BY course_number, term_code`
	var offerings []models.CourseOffering
	if err := r.db.SelectContext(ctx, &offerings, query, institution); err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}
	return offerings, nil
}
