package reconcile

import (
	"context"
	"sort"

	"github.com/campusmetrics/clo-api/internal/models"
)

// ActionType classifies what an incoming record means relative to the store.
type ActionType string

const (
	// ActionCreate means no stored record carries this natural key.
	ActionCreate ActionType = "create"
	// ActionNoop means the stored record is attribute-identical.
	ActionNoop ActionType = "noop"
	// ActionConflict means a stored record exists with differing attributes.
	ActionConflict ActionType = "conflict"
)

// FieldDiff is one attribute that differs between stored and incoming.
type FieldDiff struct {
	Field    string `json:"field"`
	Stored   string `json:"stored"`
	Incoming string `json:"incoming"`
}

// Action is the reconciliation decision for a single incoming record.
type Action struct {
	Kind       models.EntityKind
	NaturalKey string
	Type       ActionType
	Incoming   models.Record
	Stored     models.Record // nil for creates
	Diffs      []FieldDiff   // populated for conflicts, sorted by field
}

// Plan is the full set of actions for a batch, in dependency order.
type Plan struct {
	Actions   []Action
	Creates   int
	Noops     int
	Conflicts int
}

// ConflictsByKind counts conflicts per entity kind.
func (p *Plan) ConflictsByKind() map[models.EntityKind]int {
	out := make(map[models.EntityKind]int)
	for _, a := range p.Actions {
		if a.Type == ActionConflict {
			out[a.Kind]++
		}
	}
	return out
}

// Lookup fetches the stored record for a natural key. A nil record with a
// nil error means no record exists.
type Lookup interface {
	GetByNaturalKey(ctx context.Context, kind models.EntityKind, naturalKey string) (models.Record, error)
}

// Detector classifies incoming records against the store.
type Detector struct {
	store Lookup
}

func NewDetector(store Lookup) *Detector {
	return &Detector{store: store}
}

// Detect walks the graph in dependency order and classifies every record.
// Classification is pure: it never writes, so a plan can back a dry run.
func (d *Detector) Detect(ctx context.Context, graph *models.EntityGraph) (*Plan, error) {
	plan := &Plan{}
	for _, kind := range graph.Kinds() {
		for _, rec := range graph.Records(kind) {
			stored, err := d.store.GetByNaturalKey(ctx, kind, rec.NaturalKey())
			if err != nil {
				return nil, err
			}
			action := Action{
				Kind:       kind,
				NaturalKey: rec.NaturalKey(),
				Incoming:   rec,
				Stored:     stored,
			}
			switch {
			case stored == nil:
				action.Type = ActionCreate
				plan.Creates++
			default:
				action.Diffs = DiffAttributes(stored.Attributes(), rec.Attributes())
				if len(action.Diffs) == 0 {
					action.Type = ActionNoop
					plan.Noops++
				} else {
					action.Type = ActionConflict
					plan.Conflicts++
				}
			}
			plan.Actions = append(plan.Actions, action)
		}
	}
	return plan, nil
}

// DiffAttributes returns the attributes that differ, sorted by field name so
// repeated detection of the same pair yields identical diffs.
func DiffAttributes(stored, incoming map[string]string) []FieldDiff {
	fields := make(map[string]struct{}, len(stored))
	for k := range stored {
		fields[k] = struct{}{}
	}
	for k := range incoming {
		fields[k] = struct{}{}
	}
	var diffs []FieldDiff
	for k := range fields {
		sv, inStored := stored[k]
		iv, inIncoming := incoming[k]
		if inStored && inIncoming && sv == iv {
			continue
		}
		diffs = append(diffs, FieldDiff{Field: k, Stored: sv, Incoming: iv})
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Field < diffs[j].Field })
	return diffs
}
