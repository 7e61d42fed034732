package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-erp-api/api/swagger"
	"github.com/noah-isme/campus-erp-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-erp-api/internal/middleware"
	"github.com/noah-isme/campus-erp-api/internal/repository"
	"github.com/noah-isme/campus-erp-api/internal/service"
	"github.com/noah-isme/campus-erp-api/pkg/cache"
	"github.com/noah-isme/campus-erp-api/pkg/config"
	"github.com/noah-isme/campus-erp-api/pkg/database"
	"github.com/noah-isme/campus-erp-api/pkg/export"
	"github.com/noah-isme/campus-erp-api/pkg/jobs"
	"github.com/noah-isme/campus-erp-api/pkg/logger"
	"github.com/noah-isme/campus-erp-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/campus-erp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-erp-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-erp-api/pkg/storage"
)

// @title Campus ERP Fee API
// @version 1.0.0
// @description Fee ledger for the campus ERP: demand generation, payments, late fees, receipts and reports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "erp-api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	feeRepo := repository.NewFeeRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	counterRepo := repository.NewReceiptCounterRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, service.CacheConfig{
		Enabled:    redisClient != nil,
		Namespace:  cfg.Redis.Namespace,
		DefaultTTL: cfg.Fees.StatsCacheTTL,
	}, logr)

	receiptStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare receipt storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
	receiptSvc := service.NewReceiptService(feeRepo, studentRepo, receiptStore, signer, export.NewReceiptRenderer(), metricsSvc, logr, service.ReceiptConfig{
		Institution: cfg.Receipts.InstitutionName,
		APIPrefix:   cfg.APIPrefix,
	})

	sender := mailer.New(cfg.Mail.SendgridAPIKey, cfg.Mail.FromName, cfg.Mail.FromAddress, logr)
	notificationSvc := service.NewNotificationService(sender, cfg.Receipts.InstitutionName, metricsSvc, logr)

	mux := jobs.NewMux()
	mux.Handle(jobs.TypeRenderReceipt, receiptSvc.HandleJob)
	mux.Handle(jobs.TypeFeeNotice, notificationSvc.HandleJob)
	queue := jobs.NewQueue("fee-side-effects", mux.Dispatch, jobs.QueueConfig{
		Workers:    cfg.Receipts.Workers,
		MaxRetries: cfg.Receipts.Retries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	ledgerSvc := service.NewFeeLedgerService(feeRepo, studentRepo, counterRepo, db, validate, logr, service.FeeLedgerConfig{
		Schedule: service.FeeSchedule{
			TuitionDefault: cfg.Fees.TuitionDefault,
			Hostel:         cfg.Fees.HostelRate,
			Library:        cfg.Fees.LibraryRate,
			Laboratory:     cfg.Fees.LaboratoryRate,
			Exam:           cfg.Fees.ExamRate,
			Miscellaneous:  cfg.Fees.MiscRate,
		},
		DefaultDueDays: cfg.Fees.DefaultDueDays,
		StatsCacheTTL:  cfg.Fees.StatsCacheTTL,
	}, service.LedgerCollaborators{
		Receipts:    receiptSvc,
		Notifier:    notificationSvc,
		Broadcaster: service.NewPaymentBroadcaster(cacheRepo, service.PaymentChannel),
		Cache:       cacheSvc,
		Jobs:        queue,
		Audit:       auditRepo,
		Metrics:     metricsSvc,
	})
	reportSvc := service.NewFeeReportService(feeRepo, nil, nil, validate, logr)
	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	service.NewLateFeeScheduler(ledgerSvc, cfg.Fees.SweepInterval, logr).Start(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	feeHandler := handler.NewFeeHandler(ledgerSvc, reportSvc)
	receiptHandler := handler.NewReceiptHandler(receiptSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		"redis": func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Ping(ctx).Err()
		},
	}, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/fees/receipts/download", receiptHandler.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	handler.RegisterFeeRoutes(secured, feeHandler, receiptHandler, auditRepo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
