package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-erp-api/internal/models"
	"github.com/noah-isme/campus-erp-api/internal/service"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	return s.claims, s.err
}

type auditSink struct {
	logs []*models.AuditLog
}

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newRouter(claims *models.JWTClaims, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := []gin.HandlerFunc{JWT(stubValidator{claims: claims})}
	chain = append(chain, handlers...)
	chain = append(chain, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fees/students/:studentId/pending", chain...)
	return r
}

func serve(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRequiresBearerToken(t *testing.T) {
	r := newRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/fees/students/CS1/pending", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/fees/students/CS1/pending", "Token abc").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/fees/students/CS1/pending", "Bearer abc").Code)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", JWT(stubValidator{err: appErrors.Wrap(errors.New("expired"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/x", "Bearer bad").Code)
}

func TestRBACAllowsStudentOnlyForOwnRollNumber(t *testing.T) {
	student := &models.JWTClaims{UserID: "u2", Role: models.RoleStudent, StudentID: "CS2025001"}
	r := newRouter(student, RBAC(string(models.RoleAdmin), string(models.RoleStaff), SelfStudent))

	assert.Equal(t, http.StatusOK, serve(r, "/fees/students/CS2025001/pending", "Bearer t").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "/fees/students/CS2025002/pending", "Bearer t").Code)
}

func TestRBACRoles(t *testing.T) {
	staff := newRouter(&models.JWTClaims{UserID: "u3", Role: models.RoleStaff}, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(staff, "/fees/students/CS1/pending", "Bearer t").Code)

	super := newRouter(&models.JWTClaims{UserID: "u4", Role: models.RoleSuperAdmin}, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, serve(super, "/fees/students/CS1/pending", "Bearer t").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	sink := &auditSink{}
	r := newRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, Audit(sink, models.AuditActionFeeReport, "fees"))

	w := serve(r, "/fees/students/CS1/pending?format=csv", "Bearer t")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sink.logs, 1)
	assert.Equal(t, models.AuditActionFeeReport, sink.logs[0].Action)
	assert.Equal(t, "u1", *sink.logs[0].UserID)
	assert.Contains(t, string(sink.logs[0].NewValues), "format=csv")

	serve(r, "/fees/students/CS1/pending", "")
	assert.Len(t, sink.logs, 1)
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metricsSvc := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metricsSvc, "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fees/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "/fees/8d1f", "")
	serve(r, "/fees/91aa", "")
	serve(r, "/health", "")
	serve(r, "/receipts/RCP202610000001", "")

	families, err := metricsSvc.Registry().Gather()
	require.NoError(t, err)

	paths := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" {
					paths[label.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}

	assert.Equal(t, map[string]float64{"/fees/:id": 2, unmatchedRoute: 1}, paths)
}
