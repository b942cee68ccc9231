package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
)

func permissionRouter(action string, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
	}, RequirePermission(action), func(c *gin.Context) {
		scope, _ := c.Get(ContextInstitutionKey)
		c.JSON(http.StatusOK, gin.H{"scope": scope})
	})
	return router
}

func TestRequirePermissionAllowsRoleAction(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleProgramAdmin, InstitutionShortName: "nvcc"}
	router := permissionRouter(ActionImportRun, claims)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"scope":"nvcc"`)
}

func TestRequirePermissionDeniesMissingAction(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleInstructor, InstitutionShortName: "nvcc"}
	router := permissionRouter(ActionImportRun, claims)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRequirePermissionDeniesForeignTenant(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleInstitutionAdmin, InstitutionShortName: "nvcc"}
	router := permissionRouter(ActionImportRun, claims)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/?institution=other", nil))

	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRequirePermissionSiteAdminTargetsAnyTenant(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleSiteAdmin}
	router := permissionRouter(ActionReviewResolve, claims)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/?institution=other", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"scope":"other"`)
}

func TestRequirePermissionWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RequirePermission(ActionStatsRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}
