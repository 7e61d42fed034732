package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
)

type mapCacheRepo struct {
	values  map[string]interface{}
	deleted []string
	getErr  error
	lastTTL time.Duration
}

func (m *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = v.(string)
	return nil
}

func (m *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = value
	m.lastTTL = ttl
	return nil
}

func (m *mapCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	return nil
}

func TestCacheServiceHitMissAndTTL(t *testing.T) {
	repo := &mapCacheRepo{values: map[string]interface{}{}}
	svc := NewCacheService(repo, NewMetricsService(), CacheConfig{Enabled: true, Namespace: "erp"}, nil)

	var out string
	hit, err := svc.Get(context.Background(), feeStatsCacheKey, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), feeStatsCacheKey, "cached", 0))
	assert.Equal(t, 5*time.Minute, repo.lastTTL)

	hit, err = svc.Get(context.Background(), feeStatsCacheKey, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "cached", out)

	require.NoError(t, svc.Invalidate(context.Background(), feeStatsCacheKey+"*"))
	assert.Equal(t, []string{"erp:fees:statistics*"}, repo.deleted)
	assert.Contains(t, repo.values, "erp:fees:statistics")
}

func TestCacheServiceDisabledIsMiss(t *testing.T) {
	repo := &mapCacheRepo{values: map[string]interface{}{feeStatsCacheKey: "cached"}}
	svc := NewCacheService(repo, nil, CacheConfig{DefaultTTL: time.Minute}, nil)

	var out string
	hit, err := svc.Get(context.Background(), feeStatsCacheKey, &out)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Invalidate(context.Background(), "*"))
	assert.Empty(t, repo.deleted)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := &mapCacheRepo{values: map[string]interface{}{}, getErr: errors.New("redis get fees:statistics: i/o timeout")}
	svc := NewCacheService(repo, nil, CacheConfig{Enabled: true, DefaultTTL: time.Minute}, nil)

	var out string
	hit, err := svc.Get(context.Background(), feeStatsCacheKey, &out)
	assert.False(t, hit)
	assert.Error(t, err)
}

type capturingPublisher struct {
	channel string
	payload interface{}
}

func (p *capturingPublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	p.channel = channel
	p.payload = payload
	return nil
}

func TestPaymentBroadcaster(t *testing.T) {
	pub := &capturingPublisher{}
	b := NewPaymentBroadcaster(pub, "")
	event := PaymentEvent{StudentID: "CS2026001", Amount: 50000, PaymentMethod: "cash", TransactionID: "TXN1"}

	require.NoError(t, b.BroadcastPayment(context.Background(), event))
	assert.Equal(t, PaymentChannel, pub.channel)
	assert.Equal(t, event, pub.payload)

	var disabled *PaymentBroadcaster
	assert.NoError(t, disabled.BroadcastPayment(context.Background(), event))
}
