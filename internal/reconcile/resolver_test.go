package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
)

func conflictAction(storedTitle, incomingTitle string, storedAt, incomingAt time.Time) Action {
	stored := testCourse(storedTitle)
	stored.UpdatedAt = storedAt
	incoming := testCourse(incomingTitle)
	incoming.SourceUpdatedAt = incomingAt
	return Action{
		Kind:       models.KindCourse,
		NaturalKey: stored.NaturalKey(),
		Type:       ActionConflict,
		Incoming:   incoming,
		Stored:     stored,
		Diffs:      DiffAttributes(stored.Attributes(), incoming.Attributes()),
	}
}

func TestResolveUseMineKeepsStored(t *testing.T) {
	r, err := NewResolver(models.StrategyUseMine)
	require.NoError(t, err)

	res, err := r.Resolve(conflictAction("old", "new", time.Now(), time.Now()))
	require.NoError(t, err)
	require.Equal(t, OutcomeKeepStored, res.Outcome)
	require.Nil(t, res.Record)
	require.Equal(t, models.AuditOpRejected, res.AuditOp)
}

func TestResolveUseTheirsAppliesIncoming(t *testing.T) {
	r, err := NewResolver(models.StrategyUseTheirs)
	require.NoError(t, err)

	action := conflictAction("old", "new", time.Now(), time.Now())
	res, err := r.Resolve(action)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplyIncoming, res.Outcome)
	require.Same(t, action.Incoming, res.Record)
	require.Equal(t, models.AuditOpResolved, res.AuditOp)
}

func TestResolveMergeNewerIncomingWins(t *testing.T) {
	r, err := NewResolver(models.StrategyMerge)
	require.NoError(t, err)

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	res, err := r.Resolve(conflictAction("old", "new", base, base.Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplyMerged, res.Outcome)
	require.Equal(t, "new", res.Record.Attributes()["title"])
}

func TestResolveMergeTieKeepsStored(t *testing.T) {
	r, err := NewResolver(models.StrategyMerge)
	require.NoError(t, err)

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	res, err := r.Resolve(conflictAction("old", "new", base, base))
	require.NoError(t, err)
	require.Equal(t, OutcomeKeepStored, res.Outcome)
	require.Nil(t, res.Record)

	older, err := r.Resolve(conflictAction("old", "new", base, base.Add(-time.Hour)))
	require.NoError(t, err)
	require.Equal(t, OutcomeKeepStored, older.Outcome)
}

func TestResolveManualReviewQueues(t *testing.T) {
	r, err := NewResolver(models.StrategyManualReview)
	require.NoError(t, err)

	res, err := r.Resolve(conflictAction("old", "new", time.Now(), time.Now()))
	require.NoError(t, err)
	require.Equal(t, OutcomeQueued, res.Outcome)
	require.Nil(t, res.Record)
}

func TestNewResolverRejectsUnknownStrategy(t *testing.T) {
	_, err := NewResolver(models.ConflictStrategy("overwrite"))
	require.Error(t, err)
}

func TestResolveRejectsNonConflictAction(t *testing.T) {
	r, err := NewResolver(models.StrategyMerge)
	require.NoError(t, err)

	_, err = r.Resolve(Action{Type: ActionCreate, NaturalKey: "CS101|nvcc"})
	require.Error(t, err)
}
