package models

import "time"

// Audit operation constants.
const (
	AuditOpCreate     = "CREATE"
	AuditOpUpdate     = "UPDATE"
	AuditOpDeactivate = "DEACTIVATE"
	AuditOpRejected   = "CONFLICT_REJECTED"
	AuditOpResolved   = "CONFLICT_RESOLVED"
)

// ImportActor is recorded when a mutation originates from the import
// pipeline rather than a signed-in user.
const ImportActor = "import adapter"

// AuditEntry is one append-only record of a create/update/resolution
// decision. OldValues nil signals a create; entries are never mutated.
type AuditEntry struct {
	ID         string     `db:"id" json:"id"`
	BatchID    *string    `db:"batch_id" json:"batch_id,omitempty"`
	Actor      string     `db:"actor" json:"actor"`
	Operation  string     `db:"operation" json:"operation"`
	EntityKind EntityKind `db:"entity_kind" json:"entity_kind"`
	NaturalKey string     `db:"natural_key" json:"natural_key"`
	OldValues  []byte     `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte     `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
