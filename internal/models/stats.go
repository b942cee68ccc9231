package models

import "time"

// TenantStats summarises a tenant's stored records and last import, served
// best-effort alongside write-heavy imports.
type TenantStats struct {
	InstitutionShortName string             `json:"institution_short_name"`
	RecordCounts         map[EntityKind]int `json:"record_counts"`
	LastBatchID          string             `json:"last_batch_id,omitempty"`
	LastBatchState       BatchState         `json:"last_batch_state,omitempty"`
	LastImportAt         *time.Time         `json:"last_import_at,omitempty"`
	PendingReviews       int                `json:"pending_reviews"`
	Stale                bool               `json:"stale,omitempty"`
}
