package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "fees:statistics", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "fees:statistics", map[string]int{"paid": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "fees:*"))
	assert.NoError(t, repo.Publish(ctx, "dashboard:payments", map[string]string{"student": "CS2025001"}))
	assert.NoError(t, repo.Close())
}
