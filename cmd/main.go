package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopup-backend/configs"
	"shopup-backend/internal/app"
	"shopup-backend/pkg/container"
	"shopup-backend/pkg/observability"
	"shopup-backend/pkg/supabase"
)

func main() {
	// Load configuration
	config := configs.LoadConfig()

	logger, err := observability.NewLoggerWithLevel(config.LogLevel)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := config.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(config.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.NewContainer(config, logger)
	if err != nil {
		logger.Fatal("failed to register services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := services.Close(closeCtx); err != nil {
			logger.Warn("closing services", zap.Error(err))
		}
	}()

	// The auth service sometimes comes up after us in local stacks.
	client, err := container.Get[*supabase.Client](ctx, services, app.ServiceSupabase)
	if err != nil {
		logger.Fatal("failed to create supabase client", zap.Error(err))
	}
	if err := client.WaitReady(ctx, config.Supabase.ReadyAttempts, config.Supabase.ReadyDelay); err != nil {
		logger.Fatal("supabase unavailable", zap.Error(err))
	}

	router, err := app.NewRouter(ctx, services)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:              config.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("shopup backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
