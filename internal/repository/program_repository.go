package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// ProgramRepository handles persistence of academic programs.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs the repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

const programColumns = `id, name, institution_short_name, description, is_active, created_at, updated_at`

// Find returns the program by its natural key, or nil when none exists.
func (r *ProgramRepository) Find(ctx context.Context, name, institution string) (*models.Program, error) {
	const query = `SELECT ` + programColumns + ` FROM programs WHERE name = $1 AND institution_short_name = $2`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, name, institution); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find program: %w", err)
	}
	return &program, nil
}

// Upsert inserts or updates a program keyed by (name, institution).
func (r *ProgramRepository) Upsert(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	program.UpdatedAt = upsertTimestamp(program)
	const query = `INSERT INTO programs (id, name, institution_short_name, description, is_active, created_at, updated_at)
        VALUES (:id, :name, :institution_short_name, :description, :is_active, NOW(), :updated_at)
        ON CONFLICT (name, institution_short_name) DO UPDATE SET
            description = EXCLUDED.description,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("upsert program: %w", err)
	}
	return nil
}

// ListByInstitution returns the institution's programs ordered by name.
func (r *ProgramRepository) ListByInstitution(ctx context.Context, institution string) ([]models.Program, error) {
	const query = `SELECT ` + programColumns + ` FROM programs WHERE institution_short_name = $1 ORDER BY name`
	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, query, institution); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}
