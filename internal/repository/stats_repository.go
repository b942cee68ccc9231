package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// StatsRepository aggregates per-tenant counts for the dashboard endpoint.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

var statsTables = map[models.EntityKind]string{
	models.KindInstitution:    "institutions",
	models.KindProgram:        "programs",
	models.KindCourse:         "courses",
	models.KindTerm:           "terms",
	models.KindCourseOffering: "course_offerings",
	models.KindUser:           "users",
	models.KindCourseSection:  "course_sections",
	models.KindCourseOutcome:  "course_outcomes",
}

// Collect counts stored records per kind and attaches the latest batch.
func (r *StatsRepository) Collect(ctx context.Context, institution string) (*models.TenantStats, error) {
	stats := &models.TenantStats{
		InstitutionShortName: institution,
		RecordCounts:         make(map[models.EntityKind]int, len(statsTables)),
	}

	for _, kind := range models.DependencyOrder {
		table := statsTables[kind]
		var filter string
		if kind == models.KindInstitution {
			filter = "short_name = $1"
		} else {
			filter = "institution_short_name = $1"
		}
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, filter)
		if err := r.db.GetContext(ctx, &count, query, institution); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats.RecordCounts[kind] = count
	}

	const lastBatch = `SELECT id, state, created_at FROM import_batches
        WHERE institution_short_name = $1 ORDER BY created_at DESC LIMIT 1`
	var batch models.ImportBatch
	err := r.db.GetContext(ctx, &batch, lastBatch, institution)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("last import batch: %w", err)
	default:
		stats.LastBatchID = batch.ID
		stats.LastBatchState = batch.State
		createdAt := batch.CreatedAt
		stats.LastImportAt = &createdAt
	}

	const pending = `SELECT COUNT(*) FROM pending_reviews pr
        JOIN import_batches b ON b.id = pr.batch_id
        WHERE b.institution_short_name = $1 AND pr.status = $2`
	if err := r.db.GetContext(ctx, &stats.PendingReviews, pending, institution, models.ReviewPending); err != nil {
		return nil, fmt.Errorf("count pending reviews: %w", err)
	}

	return stats, nil
}
