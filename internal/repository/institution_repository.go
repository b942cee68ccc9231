package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// InstitutionRepository handles persistence of institutions.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository constructs the repository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// FindByShortName returns the institution, or nil when none exists.
func (r *InstitutionRepository) FindByShortName(ctx context.Context, shortName string) (*models.Institution, error) {
	const query = `SELECT id, short_name, name, is_active, created_at, updated_at FROM institutions WHERE short_name = $1`
	var inst models.Institution
	if err := r.db.GetContext(ctx, &inst, query, shortName); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find institution: %w", err)
	}
	return &inst, nil
}

// Upsert inserts or updates an institution keyed by short name.
func (r *InstitutionRepository) Upsert(ctx context.Context, inst *models.Institution) error {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	inst.UpdatedAt = upsertTimestamp(inst)
	const query = `INSERT INTO institutions (id, short_name, name, is_active, created_at, updated_at)
        VALUES (:id, :short_name, :name, :is_active, NOW(), :updated_at)
        ON CONFLICT (short_name) DO UPDATE SET
            name = EXCLUDED.name,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, inst); err != nil {
		return fmt.Errorf("upsert institution: %w", err)
	}
	return nil
}
