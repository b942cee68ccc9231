package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmetrics/clo-api/internal/models"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
	"github.com/campusmetrics/clo-api/pkg/response"
)

// ContextInstitutionKey is the gin context key holding the effective tenant
// scope resolved by RequirePermission.
const ContextInstitutionKey = "institutionScope"

// Actions gated by RBAC.
const (
	ActionImportRun      = "import:run"
	ActionImportRead     = "import:read"
	ActionExportRun      = "export:run"
	ActionReviewResolve  = "review:resolve"
	ActionStatsRead      = "stats:read"
	ActionOutcomeApprove = "outcome:approve"
)

// rolePermissions maps each role to the actions it may perform. Site admins
// bypass the table entirely.
var rolePermissions = map[models.UserRole]map[string]bool{
	models.RoleInstructor: {
		ActionImportRead: true,
		ActionStatsRead:  true,
	},
	models.RoleProgramAdmin: {
		ActionImportRun:  true,
		ActionImportRead: true,
		ActionExportRun:  true,
		ActionStatsRead:  true,
	},
	models.RoleInstitutionAdmin: {
		ActionImportRun:      true,
		ActionImportRead:     true,
		ActionExportRun:      true,
		ActionReviewResolve:  true,
		ActionStatsRead:      true,
		ActionOutcomeApprove: true,
	},
}

// can reports whether the actor may perform the action within the scope.
// An empty claims scope marks a site admin, who may act on any tenant; every
// other role is confined to its own institution.
func can(claims *models.JWTClaims, action, scope string) bool {
	if claims.Role == models.RoleSiteAdmin {
		return true
	}
	if scope != "" && scope != claims.InstitutionShortName {
		return false
	}
	return rolePermissions[claims.Role][action]
}

// RequirePermission gates a route on one action. The effective institution
// scope is the actor's own; site admins may target another tenant with the
// `institution` query parameter.
func RequirePermission(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		scope := claims.InstitutionShortName
		if requested := c.Query("institution"); requested != "" {
			scope = requested
		}

		if !can(claims, action, scope) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(ContextInstitutionKey, scope)
		c.Next()
	}
}
