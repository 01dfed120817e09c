package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/watermarkremover/internal/config"
	"github.com/yokitheyo/watermarkremover/internal/domain"
	httpHandler "github.com/yokitheyo/watermarkremover/internal/handler/http"
	"github.com/yokitheyo/watermarkremover/internal/handler/middleware"
	"github.com/yokitheyo/watermarkremover/internal/infrastructure/fetcher"
	"github.com/yokitheyo/watermarkremover/internal/inpaint"
	"github.com/yokitheyo/watermarkremover/internal/usecase"
	"github.com/yokitheyo/watermarkremover/internal/worker"
)

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Watermark Remover API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load("")
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("level", cfg.Logging.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Image sources
	imageFetcher, err := fetcher.New(&cfg.Fetch, &cfg.Storage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize image fetcher")
	}

	// Inpainting engines, built lazily per device
	factory, err := inpaint.NewFactory(&cfg.Inpaint)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize inpainting backend")
	}
	engines, err := inpaint.NewCache(cfg.Inpaint.CacheSize, factory, cfg.Inpaint.ConcurrentSafe)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize engine cache")
	}

	pool := worker.NewPool(cfg.Inpaint.Workers)

	pipeline := usecase.NewPipeline(imageFetcher, pool)
	watermarkUsecase := usecase.NewWatermarkUsecase(pipeline, engines)

	// Gin engine + middleware
	engine := ginext.New("api")
	engine.Use(
		middleware.ErrorHandlerMiddleware(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.CORSMiddleware(),
	)

	watermarkHandler := httpHandler.NewWatermarkHandler(watermarkUsecase, httpHandler.Options{
		DefaultDevice: cfg.Inpaint.DefaultDevice,
		Devices:       cfg.Inpaint.AllowedDevices(),
		DefaultRegion: domain.WatermarkRegion{
			Width:   cfg.Watermark.Width,
			Height:  cfg.Watermark.Height,
			OffsetX: cfg.Watermark.OffsetX,
			OffsetY: cfg.Watermark.OffsetY,
		},
		MaxRequestSize: int64(cfg.Server.MaxRequestSizeKB) * 1024,
		SupportsURL:    imageFetcher.Supports,
	})
	watermarkHandler.RegisterRoutes(engine)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Logger.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	} else {
		zlog.Logger.Info().Msg("HTTP server stopped gracefully")
	}

	pool.Close()

	if err := engines.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("releasing inpainting models failed")
	} else {
		zlog.Logger.Info().Msg("inpainting models released")
	}

	zlog.Logger.Info().Msg("API shutdown complete")
}
