package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// TermRepository handles persistence of academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs the repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = `id, term_code, institution_short_name, name, start_date, end_date, is_active, created_at, updated_at`

// Find returns the term by its natural key, or nil when none exists.
func (r *TermRepository) Find(ctx context.Context, termCode, institution string) (*models.Term, error) {
	const query = `SELECT ` + termColumns + ` FROM terms WHERE term_code = $1 AND institution_short_name = $2`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, termCode, institution); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find term: %w", err)
	}
	return &term, nil
}

// Upsert inserts or updates a term keyed by (term_code, institution).
func (r *TermRepository) Upsert(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	term.UpdatedAt = upsertTimestamp(term)
	const query = `INSERT INTO terms (id, term_code, institution_short_name, name, start_date, end_date, is_active, created_at, updated_at)
        VALUES (:id, :term_code, :institution_short_name, :name, :start_date, :end_date, :is_active, NOW(), :updated_at)
        ON CONFLICT (term_code, institution_short_name) DO UPDATE SET
            name = EXCLUDED.name,
            start_date = EXCLUDED.start_date,
            end_date = EXCLUDED.end_date,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("upsert term: %w", err)
	}
	return nil
}

// ListByInstitution returns the institution's terms ordered by code.
func (r *TermRepository) ListByInstitution(ctx context.Context, institution string) ([]models.Term, error) {
	const query = `SELECT ` + termColumns + ` FROM terms WHERE institution_short_name = $1 ORDER BY term_code`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, institution); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}
