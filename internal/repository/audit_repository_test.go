package repository

import (
	"context"
	"encoding/json"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-erp-api/internal/models"
)

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionFeePay, Resource: "fees"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJSONPayloadQuotesPlainText(t *testing.T) {
	assert.Nil(t, jsonPayload(nil))
	assert.Equal(t, []byte(`{"a":1}`), jsonPayload([]byte(`{"a":1}`)))

	quoted := jsonPayload([]byte("plain text"))
	assert.True(t, json.Valid(quoted))
	assert.Equal(t, `"plain text"`, string(quoted))
}
