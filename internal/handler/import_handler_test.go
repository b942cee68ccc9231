package handler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/adapter"
	"github.com/campusmetrics/clo-api/internal/middleware"
	"github.com/campusmetrics/clo-api/internal/models"
	"github.com/campusmetrics/clo-api/internal/service"
	"github.com/campusmetrics/clo-api/pkg/config"
)

type stubEntityStore struct {
	records map[string]models.Record
}

func (s *stubEntityStore) GetByNaturalKey(_ context.Context, kind models.EntityKind, key string) (models.Record, error) {
	return s.records[string(kind)+"|"+key], nil
}

func (s *stubEntityStore) Upsert(_ context.Context, rec models.Record) error {
	s.records[string(rec.Kind())+"|"+rec.NaturalKey()] = rec
	return nil
}

type stubBatchStore struct {
	batches map[string]*models.ImportBatch
	reviews map[string]*models.PendingReview
	seq     int
}

func (s *stubBatchStore) Create(_ context.Context, batch *models.ImportBatch) error {
	s.seq++
	if batch.ID == "" {
		batch.ID = fmt.Sprintf("batch-%d", s.seq)
	}
	if batch.State == "" {
		batch.State = models.BatchReceived
	}
	batch.CreatedAt = time.Now().UTC()
	copied := *batch
	s.batches[batch.ID] = &copied
	return nil
}

func (s *stubBatchStore) FindByID(_ context.Context, id string) (*models.ImportBatch, error) {
	batch, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	copied := *batch
	return &copied, nil
}

func (s *stubBatchStore) ListByInstitution(_ context.Context, institution string, limit int) ([]models.ImportBatch, error) {
	var out []models.ImportBatch
	for _, b := range s.batches {
		if b.InstitutionShortName == institution {
			out = append(out, *b)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubBatchStore) UpdateState(_ context.Context, id string, state models.BatchState) error {
	if batch, ok := s.batches[id]; ok {
		batch.State = state
	}
	return nil
}

func (s *stubBatchStore) Finalize(_ context.Context, batch *models.ImportBatch) error {
	copied := *batch
	s.batches[batch.ID] = &copied
	return nil
}

func (s *stubBatchStore) CreateReview(_ context.Context, review *models.PendingReview) error {
	s.seq++
	if review.ID == "" {
		review.ID = fmt.Sprintf("rev-%d", s.seq)
	}
	copied := *review
	s.reviews[review.ID] = &copied
	return nil
}

func (s *stubBatchStore) FindReview(_ context.Context, id string) (*models.PendingReview, error) {
	review, ok := s.reviews[id]
	if !ok {
		return nil, nil
	}
	copied := *review
	return &copied, nil
}

func (s *stubBatchStore) ListReviewsByBatch(_ context.Context, batchID string) ([]models.PendingReview, error) {
	var out []models.PendingReview
	for _, r := range s.reviews {
		if r.BatchID == batchID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubBatchStore) ResolveReview(_ context.Context, id, resolvedBy string, strategy models.ConflictStrategy) error {
	review, ok := s.reviews[id]
	if !ok || review.Status != models.ReviewPending {
		return fmt.Errorf("review %s not pending", id)
	}
	now := time.Now().UTC()
	with := string(strategy)
	review.Status = models.ReviewResolved
	review.ResolvedBy = &resolvedBy
	review.ResolvedWith = &with
	review.ResolvedAt = &now
	return nil
}

type stubAuditLog struct {
	entries []models.AuditEntry
}

func (s *stubAuditLog) Append(_ context.Context, entry *models.AuditEntry) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubAuditLog) ListByBatch(_ context.Context, batchID string) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, e := range s.entries {
		if e.BatchID != nil && *e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubAuditLog) ListByEntity(_ context.Context, kind models.EntityKind, naturalKey string, limit int) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, e := range s.entries {
		if e.EntityKind == kind && e.NaturalKey == naturalKey {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestImportHandler(t *testing.T) (*ImportHandler, *stubBatchStore) {
	t.Helper()
	registry := adapter.NewRegistry()
	require.NoError(t, registry.Register(adapter.NewBundleAdapter()))
	batches := &stubBatchStore{batches: make(map[string]*models.ImportBatch), reviews: make(map[string]*models.PendingReview)}
	svc := service.NewImportService(
		config.ImportsConfig{MaxFileSizeBytes: 10 << 20, MaxRows: 10000, ErrorRateThreshold: 0.25},
		registry,
		&stubEntityStore{records: make(map[string]models.Record)},
		batches,
		&stubAuditLog{},
		nil, nil,
	)
	return NewImportHandler(svc, nil), batches
}

func testBundle(t *testing.T) []byte {
	t.Helper()
	graph := models.NewEntityGraph()
	graph.Add(&models.Term{TermCode: "2026SP", InstitutionShortName: "nvcc", Name: "Spring 2026", StartDate: "2026-01-12", EndDate: "2026-05-08", IsActive: true})
	graph.Add(&models.Course{CourseNumber: "CS101", InstitutionShortName: "nvcc", Title: "Intro to Computing", ProgramName: "CS", Credits: 3, IsActive: true})
	graph.Add(&models.User{Email: "ada@nvcc.edu", FullName: "Ada Lovelace", Role: models.RoleInstructor, InstitutionShortName: "nvcc", IsActive: true})

	data, err := adapter.NewBundleAdapter().FormatExport(graph, adapter.ExportOptions{InstitutionShortName: "nvcc"})
	require.NoError(t, err)
	return data
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestImportHandlerRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTestImportHandler(t)

	body, contentType := multipartUpload(t, map[string]string{"strategy": "use_mine"}, "bundle.zip", testBundle(t))
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleInstitutionAdmin, InstitutionShortName: "nvcc"})
	c.Set(middleware.ContextInstitutionKey, "nvcc")

	handler.Run(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"created":3`)
	require.Contains(t, recorder.Body.String(), `"state":"COMPLETED"`)
}

func TestImportHandlerRunRequiresScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTestImportHandler(t)

	body, contentType := multipartUpload(t, map[string]string{"strategy": "use_mine"}, "bundle.zip", testBundle(t))
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleSiteAdmin})

	handler.Run(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Contains(t, recorder.Body.String(), "institution scope required")
}

func TestImportHandlerRunRejectsUnknownStrategy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTestImportHandler(t)

	body, contentType := multipartUpload(t, map[string]string{"strategy": "coin_flip"}, "bundle.zip", testBundle(t))
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Set(middleware.ContextInstitutionKey, "nvcc")

	handler.Run(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestImportHandlerGetBatchNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTestImportHandler(t)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/imports/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "batchId", Value: "missing"}}

	handler.GetBatch(c)

	require.Equal(t, http.StatusNotFound, recorder.Code)
}
