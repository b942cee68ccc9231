package reconcile

import (
	"fmt"

	"github.com/campusmetrics/clo-api/internal/models"
	apperrors "github.com/campusmetrics/clo-api/pkg/errors"
)

// Outcome is a resolver's verdict for one conflict.
type Outcome string

const (
	// OutcomeKeepStored leaves the stored record untouched.
	OutcomeKeepStored Outcome = "keep_stored"
	// OutcomeApplyIncoming replaces the stored record with the incoming one.
	OutcomeApplyIncoming Outcome = "apply_incoming"
	// OutcomeApplyMerged persists a field-by-field merge of the two.
	OutcomeApplyMerged Outcome = "apply_merged"
	// OutcomeQueued parks the conflict for a human decision.
	OutcomeQueued Outcome = "queued"
)

// Resolution is what the pipeline should do about a single conflict.
type Resolution struct {
	Outcome Outcome
	// Record is the record to persist; nil for keep_stored and queued.
	Record models.Record
	// AuditOp is the audit-trail operation describing the verdict.
	AuditOp string
}

// Resolver applies a batch-level conflict strategy deterministically: the
// same stored/incoming pair under the same strategy always resolves the
// same way.
type Resolver struct {
	strategy models.ConflictStrategy
}

func NewResolver(strategy models.ConflictStrategy) (*Resolver, error) {
	if !models.ValidStrategy(strategy) {
		return nil, apperrors.Clone(apperrors.ErrFieldValidation, fmt.Sprintf("unknown conflict strategy %q", strategy))
	}
	return &Resolver{strategy: strategy}, nil
}

// Resolve decides a single conflict action. Calling it with a non-conflict
// action is a programming error.
func (r *Resolver) Resolve(action Action) (Resolution, error) {
	if action.Type != ActionConflict {
		return Resolution{}, fmt.Errorf("resolve called on %s action for %s", action.Type, action.NaturalKey)
	}
	switch r.strategy {
	case models.StrategyUseMine:
		return Resolution{Outcome: OutcomeKeepStored, AuditOp: models.AuditOpRejected}, nil
	case models.StrategyUseTheirs:
		return Resolution{
			Outcome: OutcomeApplyIncoming,
			Record:  action.Incoming,
			AuditOp: models.AuditOpResolved,
		}, nil
	case models.StrategyMerge:
		return r.merge(action)
	case models.StrategyManualReview:
		return Resolution{Outcome: OutcomeQueued}, nil
	default:
		return Resolution{}, fmt.Errorf("unknown conflict strategy %q", r.strategy)
	}
}

// merge resolves each differing field by recency: the incoming value wins
// only when the incoming record was modified strictly after the stored one.
// Ties and older sources keep the stored value, so replaying the same file
// never flips a previously merged field back.
func (r *Resolver) merge(action Action) (Resolution, error) {
	stored := action.Stored
	incoming := action.Incoming

	incomingWins := incoming.LastModified().After(stored.LastModified())
	if !incomingWins {
		return Resolution{Outcome: OutcomeKeepStored, AuditOp: models.AuditOpRejected}, nil
	}

	merged := make(map[string]string, len(stored.Attributes()))
	for k, v := range stored.Attributes() {
		merged[k] = v
	}
	for _, diff := range action.Diffs {
		merged[diff.Field] = diff.Incoming
	}

	rec, err := models.RecordFromAttributes(action.Kind, merged)
	if err != nil {
		return Resolution{}, fmt.Errorf("merge %s %s: %w", action.Kind, action.NaturalKey, err)
	}
	models.SetSourceTimestamp(rec, incoming.LastModified())
	return Resolution{
		Outcome: OutcomeApplyMerged,
		Record:  rec,
		AuditOp: models.AuditOpResolved,
	}, nil
}
