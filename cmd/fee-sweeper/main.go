package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-erp-api/internal/repository"
	"github.com/noah-isme/campus-erp-api/internal/service"
	"github.com/noah-isme/campus-erp-api/pkg/cache"
	"github.com/noah-isme/campus-erp-api/pkg/config"
	"github.com/noah-isme/campus-erp-api/pkg/database"
	"github.com/noah-isme/campus-erp-api/pkg/logger"
)

// fee-sweeper runs one late fee accrual pass and exits. It is meant to be
// scheduled daily by cron or a Kubernetes CronJob.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "fee-sweeper")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, statistics cache will not be invalidated", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, service.CacheConfig{
		Enabled:    redisClient != nil,
		Namespace:  cfg.Redis.Namespace,
		DefaultTTL: cfg.Fees.StatsCacheTTL,
	}, logr)
	ledger := service.NewFeeLedgerService(
		repository.NewFeeRepository(db),
		repository.NewStudentRepository(db),
		repository.NewReceiptCounterRepository(db),
		db,
		validator.New(),
		logr,
		service.FeeLedgerConfig{DefaultDueDays: cfg.Fees.DefaultDueDays, StatsCacheTTL: cfg.Fees.StatsCacheTTL},
		service.LedgerCollaborators{
			Cache:   cacheSvc,
			Audit:   repository.NewAuditRepository(db),
			Metrics: metricsSvc,
		},
	)

	result, err := ledger.AccrueLateFees(ctx)
	if err != nil {
		logr.Fatal("late fee sweep failed", zap.Error(err))
	}
	logr.Info("late fee sweep finished",
		zap.Int("records_updated", result.RecordsUpdated),
		zap.Int64("total_late_fee", result.TotalLateFee),
		zap.Time("ran_at", result.RanAt),
	)
}
