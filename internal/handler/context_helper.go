package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmetrics/clo-api/internal/middleware"
	"github.com/campusmetrics/clo-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// institutionFromContext returns the tenant scope resolved by the rbac
// middleware, empty when unresolved.
func institutionFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextInstitutionKey)
	if !exists {
		return ""
	}
	scope, _ := value.(string)
	return scope
}
