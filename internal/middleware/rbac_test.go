package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
)

func runRBAC(t *testing.T, claims *models.JWTClaims, paramEmail string, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/students/x/records", nil)
	if paramEmail != "" {
		c.Params = gin.Params{{Key: "email", Value: paramEmail}}
	}
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	RBAC(allowed...)(c)
	if !c.IsAborted() {
		c.Status(http.StatusOK)
	}
	return rec
}

func TestRBACAllowsListedRole(t *testing.T) {
	rec := runRBAC(t, &models.JWTClaims{Role: models.RoleInstructor}, "", string(models.RoleInstructor))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	rec := runRBAC(t, &models.JWTClaims{Role: models.RoleStudent}, "", string(models.RoleInstructor))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACRequiresClaims(t *testing.T) {
	rec := runRBAC(t, nil, "", string(models.RoleInstructor))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACSelfMatchesEmailParam(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleStudent, Email: "student@academy.io"}
	rec := runRBAC(t, claims, "student@academy.io", string(models.RoleInstructor), AllowSelf)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACSelfRejectsOtherEmail(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleStudent, Email: "student@academy.io"}
	rec := runRBAC(t, claims, "other@academy.io", string(models.RoleInstructor), AllowSelf)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
