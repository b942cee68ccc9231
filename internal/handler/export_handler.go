package handler

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusmetrics/clo-api/internal/service"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
	"github.com/campusmetrics/clo-api/pkg/response"
)

// ExportHandler exposes bundle export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Produce godoc
// @Summary Export the institution's records as a bundle
// @Tags Exports
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Produce(c *gin.Context) {
	institution := institutionFromContext(c)
	if institution == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "institution scope required"))
		return
	}
	result, err := h.exports.ProduceBundle(c.Request.Context(), institution)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an exported bundle
// @Tags Exports
// @Produce application/zip
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	f, name, err := h.exports.OpenBundle(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close() //nolint:errcheck
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/zip")
	http.ServeContent(c.Writer, c.Request, name, statModTime(f), f)
}

func statModTime(f *os.File) time.Time {
	info, err := f.Stat()
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
