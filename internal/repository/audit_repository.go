package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// AuditRepository appends to and reads the immutable audit trail. There is
// deliberately no update or delete.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, batch_id, actor, operation, entity_kind, natural_key, old_values, new_values, created_at`

// Append writes one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_entries (id, batch_id, actor, operation, entity_kind, natural_key, old_values, new_values, created_at)
        VALUES (:id, :batch_id, :actor, :operation, :entity_kind, :natural_key, :old_values, :new_values, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByBatch returns a batch's trail in write order.
func (r *AuditRepository) ListByBatch(ctx context.Context, batchID string) ([]models.AuditEntry, error) {
	const query = `SELECT ` + auditColumns + ` FROM audit_entries WHERE batch_id = $1 ORDER BY created_at, id`
	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, batchID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// ListByEntity returns the history of one record, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, kind models.EntityKind, naturalKey string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT `+auditColumns+` FROM audit_entries
        WHERE entity_kind = $1 AND natural_key = $2 ORDER BY created_at DESC LIMIT %d`, limit)
	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, kind, naturalKey); err != nil {
		return nil, fmt.Errorf("list entity audit entries: %w", err)
	}
	return entries, nil
}
