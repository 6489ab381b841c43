package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"nashidona/cache"
	"nashidona/config"
	"nashidona/core/delivery"
	"nashidona/db"
	"nashidona/logger"
	"nashidona/model"
	"nashidona/repository"
	"nashidona/storage"
)

// Start wires dependencies, registers routes and runs the HTTP server until
// SIGINT/SIGTERM. The metadata database is required; Redis, GORM and MinIO
// are optional and their endpoints degrade when absent.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
	})

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("database connection failed", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("database init failed", logger.ErrorField(err))
	}

	var reportRepo repository.ReportRepository
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Warn("report storage unavailable", logger.ErrorField(err))
	} else {
		defer db.CloseGormDB()
		if err := db.AutoMigrateModels(&model.BadLinkReport{}); err != nil {
			logger.Warn("report table migration failed", logger.ErrorField(err))
		}
		reportRepo = repository.NewGormReportRepository()
	}

	var counters *cache.CounterCache
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("redis unavailable, counters disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		counters = cache.NewCounterCache()
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("minio unavailable, covers disabled", logger.ErrorField(err))
	}

	rules := delivery.NewHostRules()
	if cfg.HostRulesPath != "" {
		if err := rules.LoadFile(cfg.HostRulesPath); err != nil {
			logger.Warn("host rules file not loaded", logger.ErrorField(err))
		} else if err := rules.Watch(cfg.HostRulesPath); err != nil {
			logger.Warn("host rules watch failed", logger.ErrorField(err))
		}
	}
	defer rules.Close()

	resolver := delivery.NewResolver(cfg.CDNBaseURL, cfg.CDNProbeTimeout, rules)
	proxy := delivery.NewProxy(cfg.UpstreamUA, cfg.UpstreamReferer, cfg.UpstreamTimeout)
	trackRepo := repository.NewMySQLTrackRepository()

	apiHandler := NewAPIHandler(trackRepo, reportRepo, resolver, proxy, counters, cfg)

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.Use(requestIDMiddleware)

	router.HandleFunc("/stream/{id}", apiHandler.StreamHandler)
	router.HandleFunc("/download/{id}", apiHandler.DownloadHandler)
	router.HandleFunc("/download/{id}/{name}", apiHandler.DownloadHandler)
	router.HandleFunc("/api/track", apiHandler.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/report-bad-link", apiHandler.ReportBadLinkHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/metrics/play-start", apiHandler.PlayStartHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/metrics/download", apiHandler.DownloadMetricHandler).Methods(http.MethodPost)
	router.HandleFunc("/covers/{object:.+}", apiHandler.CoverHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
		// No WriteTimeout: audio streams legitimately run for minutes.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}
