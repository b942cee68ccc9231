package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusmetrics/clo-api/internal/adapter"
	"github.com/campusmetrics/clo-api/internal/dto"
	"github.com/campusmetrics/clo-api/internal/models"
	"github.com/campusmetrics/clo-api/internal/service"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
	"github.com/campusmetrics/clo-api/pkg/response"
)

// ImportHandler exposes the import pipeline endpoints.
type ImportHandler struct {
	imports *service.ImportService
	exports *service.ExportService
}

// NewImportHandler constructs handler.
func NewImportHandler(imports *service.ImportService, exports *service.ExportService) *ImportHandler {
	return &ImportHandler{imports: imports, exports: exports}
}

// Run godoc
// @Summary Import an assessment file
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Source file"
// @Param strategy formData string true "Conflict strategy" Enums(use_mine, use_theirs, merge, manual_review)
// @Param dryRun formData boolean false "Preview without writing"
// @Success 200 {object} response.Envelope
// @Router /imports [post]
func (h *ImportHandler) Run(c *gin.Context) {
	var form dto.ImportForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	institution := institutionFromContext(c)
	if institution == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "institution scope required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "failed to open uploaded file"))
		return
	}
	defer f.Close() //nolint:errcheck
	content, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "failed to read uploaded file"))
		return
	}

	claims := claimsFromContext(c)
	summary, err := h.imports.Run(c.Request.Context(), service.ImportRequest{
		File:                 adapter.File{Name: fileHeader.Filename, Content: content},
		InstitutionShortName: institution,
		ActorID:              claims.UserID,
		Strategy:             models.ConflictStrategy(form.Strategy),
		DryRun:               form.DryRun,
	})
	if err != nil {
		// The summary still describes what was rejected.
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, response.Envelope{Data: summary, Error: appErr})
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// GetBatch godoc
// @Summary Import batch status
// @Tags Imports
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /imports/{batchId} [get]
func (h *ImportHandler) GetBatch(c *gin.Context) {
	summary, err := h.imports.GetBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// List godoc
// @Summary Recent import batches for the institution
// @Tags Imports
// @Produce json
// @Param limit query int false "Maximum rows, defaults to 50"
// @Success 200 {object} response.Envelope
// @Router /imports [get]
func (h *ImportHandler) List(c *gin.Context) {
	institution := institutionFromContext(c)
	if institution == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "institution scope required"))
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	batches, err := h.imports.ListBatches(c.Request.Context(), institution, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, nil)
}

// EntityHistory godoc
// @Summary Audit trail of one entity across batches
// @Tags Imports
// @Produce json
// @Param kind query string true "Entity kind"
// @Param key query string true "Natural key"
// @Param limit query int false "Maximum rows, defaults to 50"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *ImportHandler) EntityHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.imports.EntityHistory(c.Request.Context(), models.EntityKind(c.Query("kind")), c.Query("key"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Audit godoc
// @Summary Import batch audit trail
// @Tags Imports
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param format query string false "pdf or csv for a downloadable report"
// @Success 200 {object} response.Envelope
// @Router /imports/{batchId}/audit [get]
func (h *ImportHandler) Audit(c *gin.Context) {
	batchID := c.Param("batchId")
	switch c.Query("format") {
	case "pdf":
		data, err := h.exports.RenderAuditPDF(c.Request.Context(), batchID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="audit-`+batchID+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", data)
		return
	case "csv":
		data, err := h.exports.RenderAuditCSV(c.Request.Context(), batchID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="audit-`+batchID+`.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
		return
	}
	entries, err := h.imports.ListAudit(c.Request.Context(), batchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ListPending godoc
// @Summary Pending manual-review conflicts for a batch
// @Tags Imports
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /imports/{batchId}/resolutions [get]
func (h *ImportHandler) ListPending(c *gin.Context) {
	reviews, err := h.imports.ListPending(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}

// Resolve godoc
// @Summary Resolve a pending conflict
// @Tags Imports
// @Accept json
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param request body dto.ResolveReviewRequest true "Resolution"
// @Success 200 {object} response.Envelope
// @Router /imports/{batchId}/resolutions [post]
func (h *ImportHandler) Resolve(c *gin.Context) {
	var req dto.ResolveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	claims := claimsFromContext(c)
	review, err := h.imports.ResolvePending(c.Request.Context(), req.ReviewID, claims.UserID, models.ConflictStrategy(req.Strategy))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// ListAdapters godoc
// @Summary Registered source-format adapters
// @Tags Imports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /adapters [get]
func (h *ImportHandler) ListAdapters(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.imports.ListAdapters(), nil)
}
