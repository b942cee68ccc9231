package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusmetrics/clo-api/internal/adapter"
	"github.com/campusmetrics/clo-api/internal/models"
	"github.com/campusmetrics/clo-api/internal/reconcile"
	"github.com/campusmetrics/clo-api/pkg/config"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
)

type entityStore interface {
	GetByNaturalKey(ctx context.Context, kind models.EntityKind, key string) (models.Record, error)
	Upsert(ctx context.Context, rec models.Record) error
}

type batchStore interface {
	Create(ctx context.Context, batch *models.ImportBatch) error
	FindByID(ctx context.Context, id string) (*models.ImportBatch, error)
	ListByInstitution(ctx context.Context, institution string, limit int) ([]models.ImportBatch, error)
	UpdateState(ctx context.Context, id string, state models.BatchState) error
	Finalize(ctx context.Context, batch *models.ImportBatch) error
	CreateReview(ctx context.Context, review *models.PendingReview) error
	FindReview(ctx context.Context, id string) (*models.PendingReview, error)
	ListReviewsByBatch(ctx context.Context, batchID string) ([]models.PendingReview, error)
	ResolveReview(ctx context.Context, id, resolvedBy string, strategy models.ConflictStrategy) error
}

type auditWriter interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByBatch(ctx context.Context, batchID string) ([]models.AuditEntry, error)
	ListByEntity(ctx context.Context, kind models.EntityKind, naturalKey string, limit int) ([]models.AuditEntry, error)
}

type importMetrics interface {
	ObserveImport(state models.BatchState)
	ObserveRecords(kind models.EntityKind, created, updated, skipped int)
	ObserveConflicts(kind models.EntityKind, count int)
}

// ImportRequest carries one uploaded file through the pipeline.
type ImportRequest struct {
	File                 adapter.File
	InstitutionShortName string
	ActorID              string
	Strategy             models.ConflictStrategy
	DryRun               bool
}

// ImportService runs the synchronous import pipeline: detect an adapter,
// parse, validate, reconcile against the store and persist in dependency
// order. Every mutation leaves an audit entry tied to the batch.
type ImportService struct {
	cfg      config.ImportsConfig
	registry *adapter.Registry
	store    entityStore
	batches  batchStore
	audit    auditWriter
	metrics  importMetrics
	validate *validator.Validate
	logger   *zap.Logger
}

// NewImportService constructs ImportService.
func NewImportService(cfg config.ImportsConfig, registry *adapter.Registry, store entityStore, batches batchStore, audit auditWriter, metrics importMetrics, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		cfg:      cfg,
		registry: registry,
		store:    store,
		batches:  batches,
		audit:    audit,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
	}
}

// Run executes the pipeline for one file and returns the summary. The
// returned error, when non-nil, is the typed rejection the handler maps to
// an HTTP status; the summary is still populated for diagnostics.
func (s *ImportService) Run(ctx context.Context, req ImportRequest) (*models.ImportSummary, error) {
	if !models.ValidStrategy(req.Strategy) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown conflict strategy %q", req.Strategy))
	}

	batch := &models.ImportBatch{
		InstitutionShortName: req.InstitutionShortName,
		ActorID:              req.ActorID,
		FileName:             req.File.Name,
		Strategy:             req.Strategy,
		DryRun:               req.DryRun,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create import batch")
	}

	summary := &models.ImportSummary{
		BatchID:   batch.ID,
		DryRun:    req.DryRun,
		PerEntity: make(map[models.EntityKind]*models.KindBreakdown),
	}

	// VALIDATING: size and format checks.
	batch.State = models.BatchValidating
	if s.cfg.MaxFileSizeBytes > 0 && int64(len(req.File.Content)) > s.cfg.MaxFileSizeBytes {
		reason := fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSizeBytes)
		return summary, s.reject(ctx, batch, summary, reason)
	}
	ad, err := s.registry.Detect(req.File)
	if err != nil {
		return summary, s.reject(ctx, batch, summary, err.Error())
	}
	batch.AdapterID = ad.Metadata().ID
	summary.AdapterID = batch.AdapterID
	batch.State = models.BatchValidated

	// PARSING: file to entity graph.
	batch.State = models.BatchParsing
	graph, parseWarnings, err := ad.Parse(req.File, adapter.ParseOptions{InstitutionShortName: req.InstitutionShortName})
	if err != nil {
		return summary, s.reject(ctx, batch, summary, fmt.Sprintf("parse failed: %v", err))
	}
	for _, w := range parseWarnings {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s %s: %s", w.Kind, w.NaturalKey, w.Message))
	}
	if s.cfg.MaxRows > 0 && graph.Total() > s.cfg.MaxRows {
		return summary, s.reject(ctx, batch, summary, fmt.Sprintf("file has %d records, limit is %d", graph.Total(), s.cfg.MaxRows))
	}
	summary.RecordsProcessed = graph.Total()
	batch.RecordsProcessed = graph.Total()
	batch.State = models.BatchParsed

	// Field validation: invalid records are dropped and reported; too many
	// of them rejects the whole batch before anything is written.
	valid, fieldErrors := s.validateRecords(ctx, graph)
	summary.Errors = append(summary.Errors, fieldErrors...)
	if graph.Total() > 0 {
		rate := float64(len(fieldErrors)) / float64(graph.Total())
		if s.cfg.ErrorRateThreshold > 0 && rate > s.cfg.ErrorRateThreshold {
			reason := fmt.Sprintf("%d of %d records failed validation (threshold %.0f%%)",
				len(fieldErrors), graph.Total(), s.cfg.ErrorRateThreshold*100)
			return summary, s.rejectWith(ctx, batch, summary, reason, appErrors.ErrImportThreshold)
		}
	}

	// RECONCILING: classify against the store. Read-only, so a dry run can
	// share the path.
	batch.State = models.BatchReconciling
	plan, err := reconcile.NewDetector(s.store).Detect(ctx, valid)
	if err != nil {
		return summary, s.fail(ctx, batch, summary, fmt.Sprintf("reconcile failed: %v", err))
	}
	batch.State = models.BatchReconciled
	summary.ConflictsDetected = plan.Conflicts
	batch.ConflictsDetected = plan.Conflicts

	resolver, err := reconcile.NewResolver(req.Strategy)
	if err != nil {
		return summary, s.fail(ctx, batch, summary, err.Error())
	}

	if req.DryRun {
		return s.preview(ctx, batch, summary, plan, resolver)
	}

	// PERSISTING: apply the plan kind by kind. A failing kind is recorded
	// in the manifest; earlier kinds stay committed.
	batch.State = models.BatchPersisting
	if err := s.batches.UpdateState(ctx, batch.ID, batch.State); err != nil {
		s.logger.Warn("failed to record batch state", zap.String("batch_id", batch.ID), zap.Error(err))
	}

	partial := false
	for _, kind := range orderOf(plan) {
		breakdown := s.persistKind(ctx, batch, plan, kind, resolver)
		summary.PerEntity[kind] = breakdown
		summary.Created += breakdown.Created
		summary.Updated += breakdown.Updated
		summary.Skipped += breakdown.Skipped
		if breakdown.Failed {
			partial = true
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", kind, breakdown.Error))
		}
		if s.metrics != nil {
			s.metrics.ObserveRecords(kind, breakdown.Created, breakdown.Updated, breakdown.Skipped)
			s.metrics.ObserveConflicts(kind, breakdown.Conflicts)
		}
	}

	batch.State = models.BatchCompleted
	summary.Status = models.ImportSuccess
	if partial {
		batch.State = models.BatchPartiallyFailed
		summary.Status = models.ImportPartial
	}
	summary.State = batch.State
	s.finalize(ctx, batch, summary)
	if s.metrics != nil {
		s.metrics.ObserveImport(batch.State)
	}
	s.logger.Info("import finished",
		zap.String("batch_id", batch.ID),
		zap.String("state", string(batch.State)),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("conflicts", summary.ConflictsDetected))
	return summary, nil
}

// validateRecords applies business-rule validation, returning a graph of
// surviving records plus one message per dropped record.
func (s *ImportService) validateRecords(ctx context.Context, graph *models.EntityGraph) (*models.EntityGraph, []string) {
	valid := models.NewEntityGraph()
	var errs []string
	for _, kind := range graph.Kinds() {
		for _, rec := range graph.Records(kind) {
			if err := s.validateRecord(ctx, graph, rec); err != nil {
				errs = append(errs, err.Error())
				continue
			}
			valid.Add(rec)
		}
	}
	return valid, errs
}

func (s *ImportService) validateRecord(ctx context.Context, graph *models.EntityGraph, rec models.Record) error {
	if err := s.validate.Struct(rec); err != nil {
		return fmt.Errorf("%s %s: %v", rec.Kind(), rec.NaturalKey(), err)
	}
	switch v := rec.(type) {
	case *models.CourseSection:
		return v.ValidateEnrollment()
	case *models.CourseOutcome:
		if !models.ValidOutcomeStatus(v.Status) {
			return fmt.Errorf("outcome %s: unknown status %q", v.NaturalKey(), v.Status)
		}
		if err := s.validateOutcomeTransition(ctx, v); err != nil {
			return err
		}
		enrollment := -1
		if key := v.SectionKey(); key != "" {
			if sec, ok := graph.Find(models.KindCourseSection, key).(*models.CourseSection); ok {
				enrollment = sec.Enrolled - sec.Withdrawn
			}
		}
		return v.ValidateCounts(enrollment)
	case *models.User:
		if !models.ValidRole(v.Role) {
			return fmt.Errorf("user %s: unknown role %q", v.Email, v.Role)
		}
	}
	return nil
}

// validateOutcomeTransition rejects an outcome whose status would move the
// stored record along an edge the approval state machine forbids. A store
// read failure is left for the reconcile phase to surface.
func (s *ImportService) validateOutcomeTransition(ctx context.Context, incoming *models.CourseOutcome) error {
	stored, err := s.store.GetByNaturalKey(ctx, models.KindCourseOutcome, incoming.NaturalKey())
	if err != nil || stored == nil {
		return nil
	}
	prev, ok := stored.(*models.CourseOutcome)
	if !ok || prev.Status == incoming.Status {
		return nil
	}
	if !models.CanTransition(prev.Status, incoming.Status) {
		return fmt.Errorf("outcome %s: status cannot move from %s to %s", incoming.NaturalKey(), prev.Status, incoming.Status)
	}
	return nil
}

// persistKind applies one kind's actions, stopping that kind on the first
// storage failure.
func (s *ImportService) persistKind(ctx context.Context, batch *models.ImportBatch, plan *reconcile.Plan, kind models.EntityKind, resolver *reconcile.Resolver) *models.KindBreakdown {
	breakdown := &models.KindBreakdown{}
	for _, action := range plan.Actions {
		if action.Kind != kind {
			continue
		}
		if breakdown.Failed {
			break
		}
		switch action.Type {
		case reconcile.ActionNoop:
			breakdown.Skipped++
		case reconcile.ActionCreate:
			if err := s.applyRecord(ctx, batch, action, action.Incoming, models.AuditOpCreate); err != nil {
				breakdown.Failed = true
				breakdown.Error = err.Error()
				continue
			}
			breakdown.Created++
		case reconcile.ActionConflict:
			breakdown.Conflicts++
			res, err := resolver.Resolve(action)
			if err != nil {
				breakdown.Failed = true
				breakdown.Error = err.Error()
				continue
			}
			switch res.Outcome {
			case reconcile.OutcomeKeepStored:
				breakdown.Skipped++
				s.appendAudit(ctx, batch, action, nil, res.AuditOp)
			case reconcile.OutcomeApplyIncoming, reconcile.OutcomeApplyMerged:
				if err := s.applyRecord(ctx, batch, action, res.Record, res.AuditOp); err != nil {
					breakdown.Failed = true
					breakdown.Error = err.Error()
					continue
				}
				breakdown.Updated++
			case reconcile.OutcomeQueued:
				if err := s.queueReview(ctx, batch, action); err != nil {
					breakdown.Failed = true
					breakdown.Error = err.Error()
					continue
				}
				breakdown.Skipped++
			}
		}
	}
	return breakdown
}

// applyRecord upserts a record and appends its audit entry.
func (s *ImportService) applyRecord(ctx context.Context, batch *models.ImportBatch, action reconcile.Action, rec models.Record, op string) error {
	if err := s.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("persist %s %s: %w", action.Kind, action.NaturalKey, err)
	}
	s.appendAudit(ctx, batch, action, rec, op)
	return nil
}

// appendAudit writes the audit entry for one pipeline decision. Audit
// failures are logged, never fatal: the mutation already happened.
func (s *ImportService) appendAudit(ctx context.Context, batch *models.ImportBatch, action reconcile.Action, applied models.Record, op string) {
	entry := &models.AuditEntry{
		BatchID:    &batch.ID,
		Actor:      models.ImportActor,
		Operation:  op,
		EntityKind: action.Kind,
		NaturalKey: action.NaturalKey,
	}
	if action.Stored != nil {
		entry.OldValues, _ = json.Marshal(action.Stored.Attributes())
	}
	if applied != nil {
		entry.NewValues, _ = json.Marshal(applied.Attributes())
	} else if action.Incoming != nil {
		entry.NewValues, _ = json.Marshal(action.Incoming.Attributes())
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append audit entry",
			zap.String("batch_id", batch.ID),
			zap.String("natural_key", action.NaturalKey),
			zap.Error(err))
	}
}

// queueReview parks a manual_review conflict without touching the store.
func (s *ImportService) queueReview(ctx context.Context, batch *models.ImportBatch, action reconcile.Action) error {
	incoming, err := json.Marshal(action.Incoming.Attributes())
	if err != nil {
		return fmt.Errorf("encode incoming values: %w", err)
	}
	diffs, err := json.Marshal(action.Diffs)
	if err != nil {
		return fmt.Errorf("encode diffs: %w", err)
	}
	review := &models.PendingReview{
		BatchID:        batch.ID,
		EntityKind:     action.Kind,
		NaturalKey:     action.NaturalKey,
		IncomingValues: incoming,
		DiffFields:     diffs,
	}
	if err := s.batches.CreateReview(ctx, review); err != nil {
		return fmt.Errorf("queue review %s %s: %w", action.Kind, action.NaturalKey, err)
	}
	return nil
}

// preview closes out a dry run. Resolution is pure, so the plan's conflicts
// are resolved in memory and bucketed exactly as persistence would bucket
// them; the reported counts match a real run with the same strategy, but
// nothing is written.
func (s *ImportService) preview(ctx context.Context, batch *models.ImportBatch, summary *models.ImportSummary, plan *reconcile.Plan, resolver *reconcile.Resolver) (*models.ImportSummary, error) {
	for _, action := range plan.Actions {
		breakdown := summary.PerEntity[action.Kind]
		if breakdown == nil {
			breakdown = &models.KindBreakdown{}
			summary.PerEntity[action.Kind] = breakdown
		}
		switch action.Type {
		case reconcile.ActionCreate:
			breakdown.Created++
			summary.Created++
		case reconcile.ActionNoop:
			breakdown.Skipped++
			summary.Skipped++
		case reconcile.ActionConflict:
			breakdown.Conflicts++
			fields := make(map[string][2]string, len(action.Diffs))
			for _, d := range action.Diffs {
				fields[d.Field] = [2]string{d.Stored, d.Incoming}
			}
			summary.ConflictPreviews = append(summary.ConflictPreviews, models.ConflictPreview{
				Kind:       action.Kind,
				NaturalKey: action.NaturalKey,
				Fields:     fields,
			})
			res, err := resolver.Resolve(action)
			if err != nil {
				summary.Errors = append(summary.Errors, err.Error())
				continue
			}
			switch res.Outcome {
			case reconcile.OutcomeApplyIncoming, reconcile.OutcomeApplyMerged:
				breakdown.Updated++
				summary.Updated++
			default:
				breakdown.Skipped++
				summary.Skipped++
			}
		}
	}
	batch.State = models.BatchPreviewed
	summary.State = batch.State
	summary.Status = models.ImportSuccess
	s.finalize(ctx, batch, summary)
	if s.metrics != nil {
		s.metrics.ObserveImport(batch.State)
	}
	return summary, nil
}

// GetBatch returns a stored batch's summary view.
func (s *ImportService) GetBatch(ctx context.Context, batchID string) (*models.ImportSummary, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load import batch")
	}
	if batch == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import batch not found")
	}
	summary := &models.ImportSummary{
		BatchID:           batch.ID,
		State:             batch.State,
		DryRun:            batch.DryRun,
		AdapterID:         batch.AdapterID,
		RecordsProcessed:  batch.RecordsProcessed,
		Created:           batch.Created,
		Updated:           batch.Updated,
		Skipped:           batch.Skipped,
		ConflictsDetected: batch.ConflictsDetected,
		PerEntity:         make(map[models.EntityKind]*models.KindBreakdown),
	}
	switch batch.State {
	case models.BatchCompleted, models.BatchPreviewed:
		summary.Status = models.ImportSuccess
	case models.BatchPartiallyFailed:
		summary.Status = models.ImportPartial
	case models.BatchRejected:
		summary.Status = models.ImportFailed
	}
	if len(batch.Breakdown) > 0 {
		if err := json.Unmarshal(batch.Breakdown, &summary.PerEntity); err != nil {
			s.logger.Warn("failed to decode batch breakdown", zap.String("batch_id", batch.ID), zap.Error(err))
		}
	}
	if len(batch.Errors) > 0 {
		if err := json.Unmarshal(batch.Errors, &summary.Errors); err != nil {
			s.logger.Warn("failed to decode batch errors", zap.String("batch_id", batch.ID), zap.Error(err))
		}
	}
	return summary, nil
}

// ListBatches returns an institution's most recent import batches.
func (s *ImportService) ListBatches(ctx context.Context, institution string, limit int) ([]models.ImportBatch, error) {
	if institution == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "institution scope required")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	batches, err := s.batches.ListByInstitution(ctx, institution, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list import batches")
	}
	return batches, nil
}

// EntityHistory returns one entity's audit trail across batches, newest
// first.
func (s *ImportService) EntityHistory(ctx context.Context, kind models.EntityKind, naturalKey string, limit int) ([]models.AuditEntry, error) {
	if !models.ValidKind(kind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entity kind %q", kind))
	}
	if naturalKey == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "natural key is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	entries, err := s.audit.ListByEntity(ctx, kind, naturalKey, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entity history")
	}
	return entries, nil
}

// ListAudit returns a batch's audit trail.
func (s *ImportService) ListAudit(ctx context.Context, batchID string) ([]models.AuditEntry, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load import batch")
	}
	if batch == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import batch not found")
	}
	entries, err := s.audit.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	return entries, nil
}

// ListPending returns a batch's parked conflicts.
func (s *ImportService) ListPending(ctx context.Context, batchID string) ([]models.PendingReview, error) {
	reviews, err := s.batches.ListReviewsByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending reviews")
	}
	return reviews, nil
}

// ResolvePending applies a strategy to one parked conflict. manual_review is
// not accepted here: a human decision has to pick a real strategy.
func (s *ImportService) ResolvePending(ctx context.Context, reviewID, actorID string, strategy models.ConflictStrategy) (*models.PendingReview, error) {
	if !models.ValidStrategy(strategy) || strategy == models.StrategyManualReview {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("strategy %q cannot resolve a pending review", strategy))
	}
	review, err := s.batches.FindReview(ctx, reviewID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending review")
	}
	if review == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pending review not found")
	}
	if review.Status != models.ReviewPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "review already resolved")
	}

	var attrs map[string]string
	if err := json.Unmarshal(review.IncomingValues, &attrs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode review payload")
	}
	incoming, err := models.RecordFromAttributes(review.EntityKind, attrs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rebuild review record")
	}

	stored, err := s.store.GetByNaturalKey(ctx, review.EntityKind, review.NaturalKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stored record")
	}

	action := reconcile.Action{
		Kind:       review.EntityKind,
		NaturalKey: review.NaturalKey,
		Type:       reconcile.ActionConflict,
		Incoming:   incoming,
		Stored:     stored,
	}
	if stored != nil {
		action.Diffs = reconcile.DiffAttributes(stored.Attributes(), incoming.Attributes())
	}

	batch := &models.ImportBatch{ID: review.BatchID}
	if stored == nil {
		// The stored record vanished since the import: apply the incoming
		// values as a create, whatever the chosen strategy.
		action.Type = reconcile.ActionCreate
		if err := s.applyRecord(ctx, batch, action, incoming, models.AuditOpCreate); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to apply review")
		}
	} else {
		resolver, err := reconcile.NewResolver(strategy)
		if err != nil {
			return nil, err
		}
		res, err := resolver.Resolve(action)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve review")
		}
		switch res.Outcome {
		case reconcile.OutcomeKeepStored:
			s.appendAudit(ctx, batch, action, nil, res.AuditOp)
		case reconcile.OutcomeApplyIncoming, reconcile.OutcomeApplyMerged:
			if err := s.applyRecord(ctx, batch, action, res.Record, res.AuditOp); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to apply review")
			}
		}
	}

	if err := s.batches.ResolveReview(ctx, reviewID, actorID, strategy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to mark review resolved")
	}
	return s.batches.FindReview(ctx, reviewID)
}

// ListAdapters exposes registry metadata for the discovery endpoint.
func (s *ImportService) ListAdapters() []adapter.Metadata {
	return s.registry.ListAvailable()
}

// reject finalizes a structurally rejected batch.
func (s *ImportService) reject(ctx context.Context, batch *models.ImportBatch, summary *models.ImportSummary, reason string) error {
	return s.rejectWith(ctx, batch, summary, reason, appErrors.ErrStructuralRejection)
}

func (s *ImportService) rejectWith(ctx context.Context, batch *models.ImportBatch, summary *models.ImportSummary, reason string, base *appErrors.Error) error {
	batch.State = models.BatchRejected
	summary.State = batch.State
	summary.Status = models.ImportFailed
	summary.Errors = append(summary.Errors, reason)
	s.finalize(ctx, batch, summary)
	if s.metrics != nil {
		s.metrics.ObserveImport(batch.State)
	}
	s.logger.Warn("import rejected", zap.String("batch_id", batch.ID), zap.String("reason", reason))
	return appErrors.Clone(base, reason)
}

// fail finalizes a batch broken by an infrastructure error mid-pipeline.
func (s *ImportService) fail(ctx context.Context, batch *models.ImportBatch, summary *models.ImportSummary, reason string) error {
	batch.State = models.BatchPartiallyFailed
	summary.State = batch.State
	summary.Status = models.ImportFailed
	summary.Errors = append(summary.Errors, reason)
	s.finalize(ctx, batch, summary)
	s.logger.Error("import failed", zap.String("batch_id", batch.ID), zap.String("reason", reason))
	return appErrors.Clone(appErrors.ErrPersistence, reason)
}

// finalize writes counters and manifests back to the batch row.
func (s *ImportService) finalize(ctx context.Context, batch *models.ImportBatch, summary *models.ImportSummary) {
	batch.Created = summary.Created
	batch.Updated = summary.Updated
	batch.Skipped = summary.Skipped
	batch.ConflictsDetected = summary.ConflictsDetected
	batch.RecordsProcessed = summary.RecordsProcessed
	if len(summary.PerEntity) > 0 {
		batch.Breakdown, _ = json.Marshal(summary.PerEntity)
	}
	if len(summary.Errors) > 0 {
		batch.Errors, _ = json.Marshal(summary.Errors)
	}
	if err := s.batches.Finalize(ctx, batch); err != nil {
		s.logger.Error("failed to finalize import batch", zap.String("batch_id", batch.ID), zap.Error(err))
	}
}

// orderOf lists the kinds a plan touches, in dependency order.
func orderOf(plan *reconcile.Plan) []models.EntityKind {
	seen := make(map[models.EntityKind]bool)
	for _, action := range plan.Actions {
		seen[action.Kind] = true
	}
	var kinds []models.EntityKind
	for _, kind := range models.DependencyOrder {
		if seen[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
