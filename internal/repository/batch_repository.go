package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// BatchRepository handles persistence of import batches and the queue of
// conflicts parked for manual review.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `id, institution_short_name, actor_id, adapter_id, file_name, strategy, dry_run, state,
        records_processed, created, updated, skipped, conflicts_detected, breakdown, errors, created_at, completed_at`

// Create persists a new batch in its initial state.
func (r *BatchRepository) Create(ctx context.Context, batch *models.ImportBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.State == "" {
		batch.State = models.BatchReceived
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO import_batches (id, institution_short_name, actor_id, adapter_id, file_name, strategy, dry_run, state,
            records_processed, created, updated, skipped, conflicts_detected, breakdown, errors, created_at)
        VALUES (:id, :institution_short_name, :actor_id, :adapter_id, :file_name, :strategy, :dry_run, :state,
            :records_processed, :created, :updated, :skipped, :conflicts_detected, :breakdown, :errors, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create import batch: %w", err)
	}
	return nil
}

// FindByID returns a batch, or nil when none exists.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.ImportBatch, error) {
	const query = `SELECT ` + batchColumns + ` FROM import_batches WHERE id = $1`
	var batch models.ImportBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find import batch: %w", err)
	}
	return &batch, nil
}

// UpdateState records a pipeline transition. Terminal states stamp
// completed_at.
func (r *BatchRepository) UpdateState(ctx context.Context, id string, state models.BatchState) error {
	var completedAt *time.Time
	if state.Terminal() {
		now := time.Now().UTC()
		completedAt = &now
	}
	const query = `UPDATE import_batches SET state = $2, completed_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, completedAt); err != nil {
		return fmt.Errorf("update batch state: %w", err)
	}
	return nil
}

// Finalize writes the batch's terminal state together with its counters and
// serialized breakdown.
func (r *BatchRepository) Finalize(ctx context.Context, batch *models.ImportBatch) error {
	now := time.Now().UTC()
	batch.CompletedAt = &now
	const query = `UPDATE import_batches SET state = :state, records_processed = :records_processed,
            created = :created, updated = :updated, skipped = :skipped, conflicts_detected = :conflicts_detected,
            breakdown = :breakdown, errors = :errors, completed_at = :completed_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("finalize import batch: %w", err)
	}
	return nil
}

// ListByInstitution returns recent batches for an institution, newest first.
func (r *BatchRepository) ListByInstitution(ctx context.Context, institution string, limit int) ([]models.ImportBatch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT `+batchColumns+` FROM import_batches
        WHERE institution_short_name = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var batches []models.ImportBatch
	if err := r.db.SelectContext(ctx, &batches, query, institution); err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	return batches, nil
}

// CreateReview parks a conflict for manual resolution.
func (r *BatchRepository) CreateReview(ctx context.Context, review *models.PendingReview) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.Status == "" {
		review.Status = models.ReviewPending
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pending_reviews (id, batch_id, entity_kind, natural_key, incoming_values, diff_fields, status, created_at)
        VALUES (:id, :batch_id, :entity_kind, :natural_key, :incoming_values, :diff_fields, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create pending review: %w", err)
	}
	return nil
}

// FindReview returns a pending review, or nil when none exists.
func (r *BatchRepository) FindReview(ctx context.Context, id string) (*models.PendingReview, error) {
	const query = `SELECT id, batch_id, entity_kind, natural_key, incoming_values, diff_fields, status, resolved_by, resolved_with, created_at, resolved_at
        FROM pending_reviews WHERE id = $1`
	var review models.PendingReview
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending review: %w", err)
	}
	return &review, nil
}

// ListReviewsByBatch returns a batch's parked conflicts, oldest first.
func (r *BatchRepository) ListReviewsByBatch(ctx context.Context, batchID string) ([]models.PendingReview, error) {
	const query = `SELECT id, batch_id, entity_kind, natural_key, incoming_values, diff_fields, status, resolved_by, resolved_with, created_at, resolved_at
        FROM pending_reviews WHERE batch_id = $1 ORDER BY created_at`
	var reviews []models.PendingReview
	if err := r.db.SelectContext(ctx, &reviews, query, batchID); err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	return reviews, nil
}

// ResolveReview marks a parked conflict resolved.
func (r *BatchRepository) ResolveReview(ctx context.Context, id, resolvedBy string, strategy models.ConflictStrategy) error {
	const query = `UPDATE pending_reviews SET status = $2, resolved_by = $3, resolved_with = $4, resolved_at = NOW()
        WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.ReviewResolved, resolvedBy, string(strategy), models.ReviewPending)
	if err != nil {
		return fmt.Errorf("resolve pending review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve pending review: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
