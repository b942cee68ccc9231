package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusmetrics/clo-api/internal/adapter"
	"github.com/campusmetrics/clo-api/internal/models"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
	"github.com/campusmetrics/clo-api/pkg/export"
)

type graphLoader interface {
	LoadGraph(ctx context.Context, institution string) (*models.EntityGraph, error)
}

type bundleStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type urlSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
}

type auditReader interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.AuditEntry, error)
}

// ExportResult describes a produced bundle and its download token.
type ExportResult struct {
	ExportID  string    `json:"export_id"`
	FileName  string    `json:"file_name"`
	Records   int       `json:"records"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders an institution's stored records back into the
// bundle format and hands the file out through signed URLs. Exports carry
// no credentials: the record attribute sets already exclude them.
type ExportService struct {
	store    graphLoader
	exporter adapter.Exporter
	files    bundleStorage
	signer   urlSigner
	audit    auditReader
	pdf      *export.PDFExporter
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(store graphLoader, exporter adapter.Exporter, files bundleStorage, signer urlSigner, audit auditReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		store:    store,
		exporter: exporter,
		files:    files,
		signer:   signer,
		audit:    audit,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		logger:   logger,
	}
}

// ProduceBundle loads an institution's graph, renders the bundle and stores
// it, returning a signed download token.
func (s *ExportService) ProduceBundle(ctx context.Context, institution string) (*ExportResult, error) {
	graph, err := s.store.LoadGraph(ctx, institution)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load records")
	}

	data, err := s.exporter.FormatExport(graph, adapter.ExportOptions{
		InstitutionShortName: institution,
		GeneratedAt:          time.Now().UTC(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render bundle")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("%s-%s.zip", institution, exportID)
	if _, err := s.files.Save(filename, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to store bundle")
	}

	token, expiresAt, err := s.signer.Generate(exportID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
	}

	s.logger.Info("bundle exported",
		zap.String("institution", institution),
		zap.String("export_id", exportID),
		zap.Int("records", graph.Total()))
	return &ExportResult{
		ExportID:  exportID,
		FileName:  filename,
		Records:   graph.Total(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// OpenBundle validates a download token and opens the stored file.
func (s *ExportService) OpenBundle(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	f, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return f, relPath, nil
}

// RenderAuditPDF renders a batch's audit trail as a PDF table.
func (s *ExportService) RenderAuditPDF(ctx context.Context, batchID string) ([]byte, error) {
	dataset, err := s.auditDataset(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return s.pdf.Render(dataset, fmt.Sprintf("Import audit trail %s", batchID))
}

// RenderAuditCSV renders a batch's audit trail as CSV.
func (s *ExportService) RenderAuditCSV(ctx context.Context, batchID string) ([]byte, error) {
	dataset, err := s.auditDataset(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return s.csv.Render(dataset)
}

func (s *ExportService) auditDataset(ctx context.Context, batchID string) (export.Dataset, error) {
	entries, err := s.audit.ListByBatch(ctx, batchID)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}

	dataset := export.Dataset{
		Headers: []string{"time", "operation", "kind", "natural_key", "actor", "changes"},
	}
	for _, e := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"time":        e.CreatedAt.UTC().Format(time.RFC3339),
			"operation":   e.Operation,
			"kind":        string(e.EntityKind),
			"natural_key": e.NaturalKey,
			"actor":       e.Actor,
			"changes":     summarizeChange(e),
		})
	}
	return dataset, nil
}

// summarizeChange compacts old/new values into a short field list.
func summarizeChange(e models.AuditEntry) string {
	var oldVals, newVals map[string]string
	if len(e.OldValues) > 0 {
		_ = json.Unmarshal(e.OldValues, &oldVals)
	}
	if len(e.NewValues) > 0 {
		_ = json.Unmarshal(e.NewValues, &newVals)
	}
	if oldVals == nil {
		return "created"
	}
	changed := ""
	for k, nv := range newVals {
		if ov, ok := oldVals[k]; !ok || ov != nv {
			if changed != "" {
				changed += ", "
			}
			changed += fmt.Sprintf("%s: %s -> %s", k, oldVals[k], nv)
		}
	}
	if changed == "" {
		return "no field changes"
	}
	return changed
}
