package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusmetrics/clo-api/internal/models"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
)

type outcomeStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseOutcome, error)
	UpdateStatus(ctx context.Context, id string, status models.OutcomeStatus) error
}

// OutcomeService moves course learning outcomes through the submission
// approval workflow. Imports only ever carry assessment figures; approval
// decisions happen here, one outcome at a time.
type OutcomeService struct {
	outcomes outcomeStore
	audit    auditWriter
	logger   *zap.Logger
}

// NewOutcomeService constructs OutcomeService.
func NewOutcomeService(outcomes outcomeStore, audit auditWriter, logger *zap.Logger) *OutcomeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeService{outcomes: outcomes, audit: audit, logger: logger}
}

// UpdateStatus transitions one outcome to a new review status. The move must
// be legal from the stored status; repeating the current status is a no-op.
func (s *OutcomeService) UpdateStatus(ctx context.Context, id, institution, actorID string, status models.OutcomeStatus) (*models.CourseOutcome, error) {
	if !models.ValidOutcomeStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown outcome status %q", status))
	}
	outcome, err := s.outcomes.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outcome")
	}
	if outcome == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "outcome not found")
	}
	if institution != "" && outcome.InstitutionShortName != institution {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "outcome belongs to another institution")
	}
	if outcome.Status == status {
		return outcome, nil
	}
	if !models.CanTransition(outcome.Status, status) {
		return nil, appErrors.Clone(appErrors.ErrFieldValidation,
			fmt.Sprintf("outcome %s: status cannot move from %s to %s", outcome.NaturalKey(), outcome.Status, status))
	}
	previous := outcome.Status
	if err := s.outcomes.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update outcome status")
	}
	outcome.Status = status

	entry := &models.AuditEntry{
		Actor:      actorID,
		Operation:  models.AuditOpUpdate,
		EntityKind: models.KindCourseOutcome,
		NaturalKey: outcome.NaturalKey(),
	}
	entry.OldValues, _ = json.Marshal(map[string]string{"status": string(previous)})
	entry.NewValues, _ = json.Marshal(map[string]string{"status": string(status)})
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append audit entry",
			zap.String("outcome_id", id),
			zap.Error(err))
	}
	return outcome, nil
}
