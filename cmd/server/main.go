// Package main is the entry point for the UPI Guard backend server.
// It serves the UPI risk record API the operator console reads and writes,
// plus the fraud report API with evidence uploads to object storage.
//
// Architecture:
//   - Records, reports, evidence metadata and accounts live in PostgreSQL
//     (in-memory repositories when DATABASE_URL is unset outside production)
//   - Evidence files go to a public-read bucket with a MIME allowlist
//   - Redis, when configured, caches the record list and backs rate limits
//   - Submitted fraud reports trigger a police contact notification stub
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/upiguard/upiguard/internal/auth"
	"github.com/upiguard/upiguard/internal/cache"
	"github.com/upiguard/upiguard/internal/config"
	"github.com/upiguard/upiguard/internal/database"
	"github.com/upiguard/upiguard/internal/evidence"
	"github.com/upiguard/upiguard/internal/handlers"
	"github.com/upiguard/upiguard/internal/middleware"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/records"
	"github.com/upiguard/upiguard/internal/repository"
	"github.com/upiguard/upiguard/internal/services"
	"github.com/upiguard/upiguard/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting UPI Guard server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"supabase_url", cfg.SupabaseURL,
		"storage", cfg.StorageBackend,
	)

	// Repositories: PostgreSQL when configured, in-memory otherwise
	var (
		db         *pgxpool.Pool
		recordRepo repository.RecordRepository   = repository.NewMemoryRecords()
		reportRepo repository.ReportRepository   = repository.NewMemoryReports()
		actRepo    repository.ActivityRepository = repository.NewMemoryActivity()
		userRepo   repository.UserRepository     = repository.NewMemoryUsers()
		dbPinger   handlers.Pinger
	)
	if cfg.DatabaseURL != "" {
		db, err = database.NewPool(cfg.DatabaseURL)
		if err != nil {
			sugar.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = database.Migrate(migrateCtx, db)
		cancel()
		if err != nil {
			sugar.Fatalf("Failed to migrate schema: %v", err)
		}

		recordRepo = repository.NewPostgresRecords(db)
		reportRepo = repository.NewPostgresReports(db)
		actRepo = repository.NewPostgresActivity(db)
		userRepo = repository.NewPostgresUsers(db)
		dbPinger = db
	} else {
		sugar.Warn("DATABASE_URL not set, data is kept in memory and lost on restart")
	}

	// Redis is optional: without it the record list is not cached and
	// rate limits are per instance
	var (
		recordCache *cache.ViewCache[[]models.UPIRecord]
		rateCounter middleware.Counter
		cachePinger handlers.Pinger
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			sugar.Warnw("Redis unavailable, continuing without cache", "error", err)
		} else {
			defer rdb.Close()
			recordCache = cache.NewViewCache[[]models.UPIRecord](rdb, "upi-records:", cfg.RecordCacheTTL, sugar)
			rateCounter = cache.NewWindowCounter(rdb, time.Minute)
			cachePinger = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}
	}

	// Object storage for evidence files
	bucketCfg := storage.BucketConfig{
		Name:             cfg.EvidenceBucket,
		Public:           true,
		AllowedMIMETypes: evidence.AllowedTypes,
		FileSizeLimit:    evidence.MaxFileSize,
	}
	var bucket storage.Bucket
	switch cfg.StorageBackend {
	case "memory":
		bucket = storage.NewMemoryBucket(cfg.EvidenceBucket, fmt.Sprintf("http://localhost:%d/files", cfg.Port))
	default:
		bucket = storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey, bucketCfg, sugar)
	}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 15*time.Second)
	if err := bucket.EnsureBucket(setupCtx); err != nil {
		// uploads fail until the bucket exists, everything else still works
		sugar.Errorw("Failed to provision evidence bucket", "bucket", cfg.EvidenceBucket, "error", err)
	}

	// Initialize services
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	recordSvc := services.NewRecordService(recordRepo, recordCache, sugar)
	activitySvc := services.NewActivityLogService(actRepo, sugar)
	reportSvc := services.NewReportService(reportRepo, bucket, activitySvc, services.NewLogNotifier(sugar), sugar)
	authSvc := services.NewAuthService(userRepo, issuer, sugar)

	if cfg.SeedSampleData {
		n, err := recordSvc.SeedIfEmpty(setupCtx, records.FallbackDataset())
		if err != nil {
			sugar.Errorw("Failed to seed sample records", "error", err)
		} else if n > 0 {
			sugar.Infow("Sample records loaded", "count", n)
		}
	}
	cancelSetup()

	// Build router
	router := newRouter(routeDeps{
		cfg:         cfg,
		logger:      logger,
		issuer:      issuer,
		rateCounter: rateCounter,
		health:      handlers.NewHealthHandler(dbPinger, cachePinger, sugar),
		records:     handlers.NewRecordHandler(recordSvc, sugar),
		reports:     handlers.NewReportHandler(reportSvc, sugar),
		activity:    handlers.NewActivityHandler(reportSvc, sugar),
		integrity:   handlers.NewIntegrityHandler(reportSvc, sugar),
		auth:        handlers.NewAuthHandler(authSvc, sugar),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
