package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
)

type stubOutcomeStore struct {
	outcomes map[string]*models.CourseOutcome
	updates  int
}

func (s *stubOutcomeStore) FindByID(_ context.Context, id string) (*models.CourseOutcome, error) {
	o, ok := s.outcomes[id]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (s *stubOutcomeStore) UpdateStatus(_ context.Context, id string, status models.OutcomeStatus) error {
	s.updates++
	s.outcomes[id].Status = status
	return nil
}

func newOutcomeFixture(status models.OutcomeStatus) *stubOutcomeStore {
	return &stubOutcomeStore{outcomes: map[string]*models.CourseOutcome{
		"out-1": {
			ID:                   "out-1",
			CourseNumber:         "CS101",
			CLONumber:            "CLO-1",
			InstitutionShortName: "nvcc",
			Status:               status,
		},
	}}
}

func TestOutcomeApproveSubmitted(t *testing.T) {
	store := newOutcomeFixture(models.OutcomeSubmitted)
	audit := &memAudit{}
	svc := NewOutcomeService(store, audit, nil)

	outcome, err := svc.UpdateStatus(context.Background(), "out-1", "nvcc", "usr-1", models.OutcomeApproved)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeApproved, outcome.Status)
	require.Equal(t, models.OutcomeApproved, store.outcomes["out-1"].Status)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	require.Equal(t, "usr-1", entry.Actor)
	require.Equal(t, models.AuditOpUpdate, entry.Operation)
	require.Equal(t, "CS101|CLO-1|nvcc", entry.NaturalKey)
	require.Contains(t, string(entry.OldValues), "SUBMITTED")
	require.Contains(t, string(entry.NewValues), "APPROVED")
}

func TestOutcomeStatusCannotRegressFromApproved(t *testing.T) {
	store := newOutcomeFixture(models.OutcomeApproved)
	svc := NewOutcomeService(store, &memAudit{}, nil)

	_, err := svc.UpdateStatus(context.Background(), "out-1", "nvcc", "usr-1", models.OutcomeDraft)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrFieldValidation.Code, appErr.Code)
	require.Equal(t, 0, store.updates)
	require.Equal(t, models.OutcomeApproved, store.outcomes["out-1"].Status)
}

func TestOutcomeStatusRepeatIsNoOp(t *testing.T) {
	store := newOutcomeFixture(models.OutcomeApproved)
	svc := NewOutcomeService(store, &memAudit{}, nil)

	outcome, err := svc.UpdateStatus(context.Background(), "out-1", "nvcc", "usr-1", models.OutcomeApproved)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeApproved, outcome.Status)
	require.Equal(t, 0, store.updates)
}

func TestOutcomeStatusScopedToInstitution(t *testing.T) {
	store := newOutcomeFixture(models.OutcomeSubmitted)
	svc := NewOutcomeService(store, &memAudit{}, nil)

	_, err := svc.UpdateStatus(context.Background(), "out-1", "other", "usr-1", models.OutcomeApproved)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestOutcomeStatusUnknownTargetRejected(t *testing.T) {
	store := newOutcomeFixture(models.OutcomeSubmitted)
	svc := NewOutcomeService(store, &memAudit{}, nil)

	_, err := svc.UpdateStatus(context.Background(), "out-1", "nvcc", "usr-1", models.OutcomeStatus("BANANAS"))
	require.Error(t, err)

	_, err = svc.UpdateStatus(context.Background(), "missing", "nvcc", "usr-1", models.OutcomeApproved)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
