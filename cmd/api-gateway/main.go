package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusmetrics/clo-api/api/swagger"
	"github.com/campusmetrics/clo-api/internal/adapter"
	"github.com/campusmetrics/clo-api/internal/handler"
	"github.com/campusmetrics/clo-api/internal/middleware"
	"github.com/campusmetrics/clo-api/internal/models"
	"github.com/campusmetrics/clo-api/internal/repository"
	"github.com/campusmetrics/clo-api/internal/service"
	"github.com/campusmetrics/clo-api/pkg/cache"
	"github.com/campusmetrics/clo-api/pkg/config"
	"github.com/campusmetrics/clo-api/pkg/database"
	"github.com/campusmetrics/clo-api/pkg/jobs"
	"github.com/campusmetrics/clo-api/pkg/logger"
	corsmiddleware "github.com/campusmetrics/clo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusmetrics/clo-api/pkg/middleware/requestid"
	"github.com/campusmetrics/clo-api/pkg/storage"
)

// @title CLO Import API
// @version 0.1.0
// @description Course-outcome import, reconciliation and export service
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Stats fall back to direct queries when the cache is down.
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	entities := repository.NewEntityStore(db)
	batches := repository.NewBatchRepository(db)
	audits := repository.NewAuditRepository(db)
	outcomes := repository.NewOutcomeRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	registry := adapter.NewRegistry()
	bundleAdapter := adapter.NewBundleAdapter()
	if err := registry.Register(bundleAdapter); err != nil {
		logr.Sugar().Fatalw("failed to register adapter", "error", err)
	}
	if err := registry.Register(adapter.NewRegistrarAdapter()); err != nil {
		logr.Sugar().Fatalw("failed to register adapter", "error", err)
	}

	metricsSvc := service.NewMetricsService()
	importSvc := service.NewImportService(cfg.Imports, registry, entities, batches, audits, metricsSvc, logr)
	exportSvc := service.NewExportService(entities, bundleAdapter, files, signer, audits, logr)
	outcomeSvc := service.NewOutcomeService(outcomes, audits, logr)
	var statsSvc *service.StatsService
	if redisClient != nil {
		statsSvc = service.NewStatsService(cfg.Stats, statsRepo, redisClient, logr)
	} else {
		statsSvc = service.NewStatsService(cfg.Stats, statsRepo, nil, logr)
	}

	importHandler := handler.NewImportHandler(importSvc, exportSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	outcomeHandler := handler.NewOutcomeHandler(outcomeSvc)

	cleanupQueue := jobs.NewQueue("export-cleanup", func(ctx context.Context, job jobs.Job) error {
		removed, err := files.CleanupOlderThan(cfg.Exports.SignedURLTTL)
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			logr.Sugar().Infow("expired export bundles removed", "count", len(removed))
		}
		return nil
	}, jobs.QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 1, RetryDelay: time.Minute, Logger: logr})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				_ = cleanupQueue.Enqueue(jobs.Job{
					ID:   fmt.Sprintf("cleanup-%d", t.Unix()),
					Type: "export-cleanup",
				})
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.JWT(cfg.JWT))
	{
		api.POST("/imports",
			middleware.RequirePermission(middleware.ActionImportRun),
			middleware.Audit(audits, "IMPORT_REQUESTED", models.KindInstitution),
			importHandler.Run)
		api.GET("/imports",
			middleware.RequirePermission(middleware.ActionImportRead),
			importHandler.List)
		api.GET("/imports/:batchId",
			middleware.RequirePermission(middleware.ActionImportRead),
			importHandler.GetBatch)
		api.GET("/imports/:batchId/audit",
			middleware.RequirePermission(middleware.ActionImportRead),
			importHandler.Audit)
		api.GET("/imports/:batchId/resolutions",
			middleware.RequirePermission(middleware.ActionImportRead),
			importHandler.ListPending)
		api.POST("/imports/:batchId/resolutions",
			middleware.RequirePermission(middleware.ActionReviewResolve),
			importHandler.Resolve)
		api.GET("/audit",
			middleware.RequirePermission(middleware.ActionImportRead),
			importHandler.EntityHistory)
		api.GET("/adapters",
			middleware.RequirePermission(middleware.ActionImportRead),
			importHandler.ListAdapters)
		api.PATCH("/outcomes/:id/status",
			middleware.RequirePermission(middleware.ActionOutcomeApprove),
			outcomeHandler.UpdateStatus)
		api.POST("/exports",
			middleware.RequirePermission(middleware.ActionExportRun),
			exportHandler.Produce)
		api.GET("/stats",
			middleware.RequirePermission(middleware.ActionStatsRead),
			statsHandler.Get)
	}

	// Bundle downloads authenticate with the signed token instead of a JWT.
	r.GET("/api/v1/exports/download", exportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
