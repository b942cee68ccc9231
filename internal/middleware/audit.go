package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusmetrics/clo-api/internal/models"
	"github.com/campusmetrics/clo-api/internal/repository"
)

// Audit records one trail entry after each successful request through a
// mutating route. Import-pipeline mutations carry their own per-record
// entries; this covers the surrounding API actions.
func Audit(repo *repository.AuditRepository, operation string, kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		actor := "anonymous"
		if claimsValue, ok := c.Get(ContextUserKey); ok {
			actor = claimsValue.(*models.JWTClaims).Email
		}

		meta, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
			"ip":      c.ClientIP(),
		})

		naturalKey := c.Param("batchId")
		if naturalKey == "" {
			naturalKey = c.GetString(ContextInstitutionKey)
		}
		entry := &models.AuditEntry{
			Actor:      actor,
			Operation:  operation,
			EntityKind: kind,
			NaturalKey: naturalKey,
			NewValues:  meta,
		}
		if batchID := c.Param("batchId"); batchID != "" {
			entry.BatchID = &batchID
		}
		_ = repo.Append(c.Request.Context(), entry)
	}
}
