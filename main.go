package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photo-ingest/internal/database"
	"photo-ingest/internal/handlers"
	"photo-ingest/internal/ingest"
	"photo-ingest/internal/keys"
	"photo-ingest/internal/logging"
	"photo-ingest/internal/memory"
	"photo-ingest/internal/metrics"
	"photo-ingest/internal/middleware"
	"photo-ingest/internal/pipeline"
	"photo-ingest/internal/startup"
	"photo-ingest/internal/storage"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Set GOMEMLIMIT before large image buffers start arriving
	memory.ConfigureFromEnv()

	ctx := context.Background()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize object store
	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Endpoint:        config.S3Endpoint,
		Region:          config.S3Region,
		Bucket:          config.S3Bucket,
		AccessKeyID:     config.S3AccessKeyID,
		AccessKeySecret: config.S3AccessSecret,
		DisableHTTPS:    config.S3DisableHTTPS,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize object store: %v", err)
	}
	startup.LogStorageInit(config.S3Bucket, config.S3Endpoint)

	// Select codec backend
	var codec pipeline.Codec
	switch config.CodecBackend {
	case "vips":
		pipeline.InitVips()
		defer pipeline.ShutdownVips()
		codec = pipeline.VipsCodec{}
		logging.Info("Codec backend: libvips")
	default:
		codec = pipeline.StdCodec{}
		logging.Info("Codec backend: pure Go")
	}

	scheme := keys.Scheme{
		OriginalPrefix:  config.OriginalPrefix,
		ThumbnailPrefix: config.ThumbnailPrefix,
		DefaultFolder:   config.DefaultFolder,
	}
	resolver := keys.Resolver{BaseDomain: config.BaseDomain, Scheme: scheme}

	coord := ingest.NewCoordinator(store, db, codec, scheme, resolver, pipeline.DeriveConfig{
		MaxOriginalDim: config.MaxOriginalDim,
		MaxThumbDim:    config.ThumbnailProfile.Dim(),
		Quality:        config.JPEGQuality,
	})

	// Initialize handlers
	h := handlers.New(db, store, coord, resolver, config)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply metrics middleware
	metricsConfig := middleware.DefaultMetricsConfig()
	meteredHandler := middleware.Metrics(metricsConfig)(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(meteredHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics are served on their own port so the public listener never
	// exposes them
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		info := startup.GetBuildInfo()
		metrics.SetBuildInfo(info.Version, info.Commit, info.GoVersion)

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, db)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.HandleFunc("/livez", h.Health).Methods("GET")
	r.HandleFunc("/readyz", h.Ready).Methods("GET")
	r.HandleFunc("/version", h.Version).Methods("GET")

	// Ingestion and asset routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/images", h.Upload).Methods("POST")
	api.HandleFunc("/images/batch", h.UploadBatch).Methods("POST")
	api.HandleFunc("/images", h.ListAssets).Methods("GET")
	api.HandleFunc("/images/{id:[0-9]+}", h.GetAsset).Methods("GET")
	api.HandleFunc("/images/{id:[0-9]+}", h.DeleteAsset).Methods("DELETE")
	api.HandleFunc("/version", h.Version).Methods("GET")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, db *database.Database) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
