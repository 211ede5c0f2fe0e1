package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/config"
	dbRedis "github.com/yow-cloud/shoplens/internal/db/redis"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	logpkg "github.com/yow-cloud/shoplens/internal/logger"
	"github.com/yow-cloud/shoplens/internal/metrics"
	indexrepo "github.com/yow-cloud/shoplens/internal/repository/indexstate"
	chiTransport "github.com/yow-cloud/shoplens/internal/transport/chi"
	"github.com/yow-cloud/shoplens/internal/transport/gcs"
	"github.com/yow-cloud/shoplens/internal/transport/vision"
	cataloguc "github.com/yow-cloud/shoplens/internal/usecase/catalog"
	healthuc "github.com/yow-cloud/shoplens/internal/usecase/health"
	importeruc "github.com/yow-cloud/shoplens/internal/usecase/importer"
	indexuc "github.com/yow-cloud/shoplens/internal/usecase/index"
	orchestratoruc "github.com/yow-cloud/shoplens/internal/usecase/orchestrator"
	searchuc "github.com/yow-cloud/shoplens/internal/usecase/search"
	"github.com/yow-cloud/shoplens/internal/version"
)

func main() {
	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shoplens API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("product_set", cfg.GCP.ProductSetID),
	)

	// rueidis speaks to both; the driver switch keeps the config honest
	switch cfg.Database.Driver {
	case "valkey", "redis":
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register backend metrics explicitly (no init())
	metrics.RegisterRemoteMetrics()

	// Vision Product Search backend
	visionClient, err := vision.NewClient(ctx, vision.Config{
		ProjectID:    cfg.GCP.ProjectID,
		Location:     cfg.GCP.Location,
		ProductSetID: cfg.GCP.ProductSetID,
	})
	if err != nil {
		logger.Fatal("Failed to create vision client", zap.Error(err))
	}
	defer func() { _ = visionClient.Close() }()

	// Image mirror is optional; without a bucket, http(s) reference images are
	// handed to the backend as-is.
	var mirror importeruc.ImageMirror
	if cfg.Storage.Bucket != "" {
		gcsMirror, err := gcs.NewMirror(ctx, cfg.Storage.Bucket, cfg.Storage.ObjectPrefix)
		if err != nil {
			logger.Fatal("Failed to create image mirror", zap.Error(err))
		}
		defer func() { _ = gcsMirror.Close() }()
		mirror = gcsMirror
		logger.Info("Image mirroring enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	// Attribute vocabulary for labels and filters
	vocab := product.DefaultVocabulary()
	if len(cfg.Catalog.AttributeKeys) > 0 {
		vocab, err = product.NewVocabulary(cfg.Catalog.AttributeKeys)
		if err != nil {
			logger.Fatal("Invalid attribute vocabulary", zap.Error(err))
		}
	}

	// Index lifecycle: restore the persisted snapshot, then make sure the
	// remote product set exists before taking traffic.
	indexRepo := indexrepo.New(store, cfg.Database.KeyPrefix)
	lifecycle := indexuc.New(visionClient, indexRepo, indexuc.Config{
		ProductSetID:     cfg.GCP.ProductSetID,
		PollTimeout:      time.Duration(cfg.Search.PollTimeoutSec) * time.Second,
		FailureThreshold: cfg.Search.PollThreshold,
	}, logger)
	if err := lifecycle.Restore(ctx); err != nil {
		logger.Fatal("Failed to restore index state", zap.Error(err))
	}
	if err := lifecycle.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure product set", zap.Error(err))
	}

	// Use case services
	normalizer := cataloguc.NewNormalizer(vocab, logger)
	importerSvc := importeruc.New(normalizer, visionClient, mirror, lifecycle, importeruc.Config{
		BatchSize:    cfg.Catalog.BatchSize,
		MaxTries:     cfg.Catalog.RetryMaxTries,
		RetryBase:    time.Duration(cfg.Catalog.RetryBaseMS) * time.Millisecond,
		RetryCap:     time.Duration(cfg.Catalog.RetryCapMS) * time.Millisecond,
		ChunkTimeout: time.Duration(cfg.Catalog.ChunkTimeoutSec) * time.Second,
	}, logger)
	searchSvc := searchuc.New(
		visionClient,
		searchuc.NewHTTPProbe(10*time.Second),
		vocab,
		searchuc.Config{
			Timeout:       time.Duration(cfg.Search.TimeoutSec) * time.Second,
			RetryAttempts: cfg.Search.RetryAttempts,
			RetryDelay:    time.Duration(cfg.Search.RetryDelayMS) * time.Millisecond,
		},
		logger,
	)
	catalogSvc := cataloguc.New(visionClient, visionClient)
	healthSvc := healthuc.New(store, visionClient)
	orchestrator := orchestratoruc.New(importerSvc, lifecycle, searchSvc, catalogSvc)

	// Create chi server
	server := chiTransport.NewServer(orchestrator, healthSvc, logger, int64(cfg.HTTP.MaxUploadMB)<<20)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"kind":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
