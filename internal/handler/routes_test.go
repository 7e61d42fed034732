package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-erp-api/internal/middleware"
	"github.com/noah-isme/campus-erp-api/internal/models"
)

type routeAuditSink struct {
	entries []*models.AuditLog
}

func (s *routeAuditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.entries = append(s.entries, log)
	return nil
}

func newFeeRouter(sink *routeAuditSink) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	secured := r.Group("")
	secured.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
		c.Next()
	})
	fees := NewFeeHandler(&ledgerMock{fee: &models.Fee{ID: "f1", StudentID: "CS2026001"}}, &reporterMock{})
	RegisterFeeRoutes(secured, fees, NewReceiptHandler(&receiptServiceMock{}), sink)
	return r
}

func TestFeeRoutesCreateHasNoRequestAudit(t *testing.T) {
	sink := &routeAuditSink{}
	r := newFeeRouter(sink)

	req := httptest.NewRequest(http.MethodPost, "/fees", bytes.NewBufferString(`{"studentId":"CS2026001"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, sink.entries)
}

func TestFeeRoutesAccrualIsAuditedOnce(t *testing.T) {
	sink := &routeAuditSink{}
	r := newFeeRouter(sink)

	req := httptest.NewRequest(http.MethodPost, "/fees/late-fees/accrue", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, models.AuditActionLateFeeAccrue, sink.entries[0].Action)
	require.NotNil(t, sink.entries[0].UserID)
	assert.Equal(t, "u1", *sink.entries[0].UserID)
}
