package models

import "time"

// BatchState is the import pipeline state machine position.
type BatchState string

const (
	BatchReceived        BatchState = "RECEIVED"
	BatchValidating      BatchState = "VALIDATING"
	BatchValidated       BatchState = "VALIDATED"
	BatchRejected        BatchState = "REJECTED"
	BatchPreviewed       BatchState = "PREVIEWED"
	BatchParsing         BatchState = "PARSING"
	BatchParsed          BatchState = "PARSED"
	BatchReconciling     BatchState = "RECONCILING"
	BatchReconciled      BatchState = "RECONCILED"
	BatchPersisting      BatchState = "PERSISTING"
	BatchCompleted       BatchState = "COMPLETED"
	BatchPartiallyFailed BatchState = "PARTIALLY_FAILED"
)

// Terminal reports whether the state ends the pipeline.
func (s BatchState) Terminal() bool {
	switch s {
	case BatchRejected, BatchPreviewed, BatchCompleted, BatchPartiallyFailed:
		return true
	}
	return false
}

// ConflictStrategy selects how detected conflicts are resolved.
type ConflictStrategy string

const (
	StrategyUseMine      ConflictStrategy = "use_mine"
	StrategyUseTheirs    ConflictStrategy = "use_theirs"
	StrategyMerge        ConflictStrategy = "merge"
	StrategyManualReview ConflictStrategy = "manual_review"
)

// ValidStrategy reports whether the strategy is one of the known values.
func ValidStrategy(s ConflictStrategy) bool {
	switch s {
	case StrategyUseMine, StrategyUseTheirs, StrategyMerge, StrategyManualReview:
		return true
	}
	return false
}

// ImportBatch is the durable record of one import operation.
type ImportBatch struct {
	ID                   string           `db:"id" json:"id"`
	InstitutionShortName string           `db:"institution_short_name" json:"institution_short_name"`
	ActorID              string           `db:"actor_id" json:"actor_id"`
	AdapterID            string           `db:"adapter_id" json:"adapter_id"`
	FileName             string           `db:"file_name" json:"file_name"`
	Strategy             ConflictStrategy `db:"strategy" json:"strategy"`
	DryRun               bool             `db:"dry_run" json:"dry_run"`
	State                BatchState       `db:"state" json:"state"`
	RecordsProcessed     int              `db:"records_processed" json:"records_processed"`
	Created              int              `db:"created" json:"created"`
	Updated              int              `db:"updated" json:"updated"`
	Skipped              int              `db:"skipped" json:"skipped"`
	ConflictsDetected    int              `db:"conflicts_detected" json:"conflicts_detected"`
	Breakdown            []byte           `db:"breakdown" json:"-"`
	Errors               []byte           `db:"errors" json:"-"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`
	CompletedAt          *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// KindBreakdown summarises pipeline effects for one entity kind.
type KindBreakdown struct {
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Conflicts int      `json:"conflicts"`
	Failed    bool     `json:"failed,omitempty"`
	Error     string   `json:"error,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ImportStatus is the user-facing overall result.
type ImportStatus string

const (
	ImportSuccess ImportStatus = "success"
	ImportPartial ImportStatus = "partial"
	ImportFailed  ImportStatus = "failed"
)

// ImportSummary is returned synchronously to the caller for every import.
type ImportSummary struct {
	BatchID           string                        `json:"batch_id"`
	Status            ImportStatus                  `json:"status"`
	State             BatchState                    `json:"state"`
	DryRun            bool                          `json:"dry_run"`
	AdapterID         string                        `json:"adapter_id"`
	RecordsProcessed  int                           `json:"records_processed"`
	Created           int                           `json:"created"`
	Updated           int                           `json:"updated"`
	Skipped           int                           `json:"skipped"`
	ConflictsDetected int                           `json:"conflicts_detected"`
	PerEntity         map[EntityKind]*KindBreakdown `json:"per_entity_breakdown"`
	Errors            []string                      `json:"errors,omitempty"`
	Warnings          []string                      `json:"warnings,omitempty"`
	ConflictPreviews  []ConflictPreview             `json:"conflict_previews,omitempty"`
}

// ConflictPreview describes one detected conflict for dry-run output and
// manual review queues.
type ConflictPreview struct {
	Kind       EntityKind        `json:"kind"`
	NaturalKey string            `json:"natural_key"`
	Fields     map[string][2]string `json:"fields"`
}

// PendingReviewStatus tracks queued manual-review conflicts.
type PendingReviewStatus string

const (
	ReviewPending  PendingReviewStatus = "PENDING"
	ReviewResolved PendingReviewStatus = "RESOLVED"
)

// PendingReview is a conflict parked under the manual_review strategy.
type PendingReview struct {
	ID             string              `db:"id" json:"id"`
	BatchID        string              `db:"batch_id" json:"batch_id"`
	EntityKind     EntityKind          `db:"entity_kind" json:"entity_kind"`
	NaturalKey     string              `db:"natural_key" json:"natural_key"`
	IncomingValues []byte              `db:"incoming_values" json:"-"`
	DiffFields     []byte              `db:"diff_fields" json:"-"`
	Status         PendingReviewStatus `db:"status" json:"status"`
	ResolvedBy     *string             `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedWith   *string             `db:"resolved_with" json:"resolved_with,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	ResolvedAt     *time.Time          `db:"resolved_at" json:"resolved_at,omitempty"`
}
