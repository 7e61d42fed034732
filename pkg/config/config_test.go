package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30, cfg.Fees.DefaultDueDays)
	assert.Equal(t, int64(50000), cfg.Fees.TuitionDefault)
	assert.Equal(t, int64(25000), cfg.Fees.HostelRate)
	assert.Equal(t, time.Duration(0), cfg.Fees.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.Fees.StatsCacheTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Receipts.SignedURLTTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("FEE_SWEEP_INTERVAL", "24h")
	v.Set("FEE_DEFAULT_DUE_DAYS", 0)
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	v.Set("RECEIPTS_WORKERS", -1)

	cfg := fromViper(v)

	assert.Equal(t, 24*time.Hour, cfg.Fees.SweepInterval)
	assert.Equal(t, 30, cfg.Fees.DefaultDueDays)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 2, cfg.Receipts.Workers)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
