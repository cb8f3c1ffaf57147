package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"liveclass/internal/core/services"
	handlers "liveclass/internal/handlers/http"
	"liveclass/internal/infrastructure/backend"
	"liveclass/internal/infrastructure/monitoring"
	"liveclass/internal/infrastructure/recording"
	"liveclass/internal/infrastructure/storage"
	"liveclass/pkg/config"
	"liveclass/pkg/logger"
	"liveclass/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			log.Printf("Loaded config from: %s", path)
			break
		}
	}
	if err != nil {
		log.Printf("Could not load config from any path, using defaults")
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "liveclass-cleanup",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		sugar.Fatalw("failed to init tracing", "error", err)
	}
	defer tp.Shutdown(context.Background())

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.AuthToken, cfg.Backend.RequestTimeout, sugar)
	recordingClient := recording.NewClient(cfg.Recording.BaseURL, cfg.Recording.AppID, cfg.Backend.RequestTimeout, sugar)

	s3Client, err := storage.NewS3ClientFromEnv(context.Background(), cfg.Recording.Region)
	if err != nil {
		sugar.Fatalw("failed to build S3 client", "error", err)
	}
	objectStore := storage.NewS3Store(s3Client, cfg.Recording.Bucket, sugar)

	minter, err := services.NewCredentialMinter(cfg.Recording.TokenSecret)
	if err != nil {
		sugar.Fatalw("failed to build credential minter", "error", err)
	}

	collector := monitoring.NewPrometheusCollector()

	manager := services.NewRecordingLifecycleManager(services.RecordingOptions{
		Bucket:         cfg.Recording.Bucket,
		Region:         cfg.Recording.Region,
		ResourceExpiry: cfg.Recording.ResourceExpiry,
		CredentialTTL:  cfg.Recording.CredentialTTL,
	}, recordingClient, objectStore, backendClient, minter, collector, sugar)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handlers.NewCleanupHandler(manager, sugar).Register(router)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	if cfg.Monitoring.PrometheusEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
			sugar.Infow("metrics endpoint listening", "address", addr)
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
				sugar.Errorw("metrics endpoint failed", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sugar.Infow("cleanup service listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("shutting down cleanup service")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorw("shutdown failed", "error", err)
	}
}
