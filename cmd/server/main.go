// Package main provides the entry point for the Meeting Notes API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/meetnotes/meeting-notes-api/internal/bootstrap"
	"github.com/meetnotes/meeting-notes-api/internal/config"
	"github.com/meetnotes/meeting-notes-api/internal/server"
	"github.com/meetnotes/meeting-notes-api/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting Meeting Notes API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("upload_dir", cfg.UploadDir),
		slog.Int("max_file_size_mb", cfg.MaxFileSizeMB),
		slog.Int("chunk_duration_minutes", cfg.ChunkDurationMinutes),
		slog.Bool("postgres_enabled", cfg.PostgresEnabled()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.Bool("watch_enabled", cfg.WatchEnabled()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	handlers := server.NewHandlers(server.Deps{
		Config:        cfg,
		Store:         deps.Store,
		Files:         deps.Files,
		Transcription: deps.Transcription,
		Summarization: deps.Summarization,
		Transcribing:  deps.Transcribing,
		Summarizing:   deps.Summarizing,
		Email:         deps.Email,
		Slack:         deps.Slack,
	}, logger)
	router := server.NewRouter(handlers, logger, server.DefaultRouterConfig())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Allow for long uploads
		IdleTimeout:  60 * time.Second,
	}

	if cfg.WatchEnabled() {
		w, err := watcher.New(cfg.WatchDir, cfg.ExtensionAllowed, watcher.Deps{
			Store:         deps.Store,
			Files:         deps.Files,
			Transcription: deps.Transcription,
			Summarization: deps.Summarization,
			Transcribing:  deps.Transcribing,
			Summarizing:   deps.Summarizing,
		}, logger)
		if err != nil {
			return fmt.Errorf("start inbox watcher: %w", err)
		}
		defer func() { _ = w.Close() }()

		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("inbox watcher stopped",
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		return err
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
