// Package bootstrap provides dependency initialization for the Meeting Notes API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meetnotes/meeting-notes-api/internal/audio"
	"github.com/meetnotes/meeting-notes-api/internal/config"
	"github.com/meetnotes/meeting-notes-api/internal/notify"
	"github.com/meetnotes/meeting-notes-api/internal/pipeline"
	"github.com/meetnotes/meeting-notes-api/internal/record"
	"github.com/meetnotes/meeting-notes-api/internal/registry"
	"github.com/meetnotes/meeting-notes-api/internal/storage"
	"github.com/meetnotes/meeting-notes-api/internal/summarizer"
	"github.com/meetnotes/meeting-notes-api/internal/transcriber"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Store         record.Store
	Files         storage.Storage
	Transcription *pipeline.Transcription
	Summarization *pipeline.Summarization
	Transcribing  *registry.Registry
	Summarizing   *registry.Registry
	Email         *notify.EmailClient
	Slack         *notify.SlackClient

	closers []func()
}

// Close releases resources held by the dependencies.
func (d *Dependencies) Close() {
	for _, fn := range d.closers {
		fn()
	}
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	store, err := initStore(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}

	files, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(cfg.OpenAIAPIKey)

	chunker := audio.NewFFmpegChunker(cfg.FFmpegPath, audio.ChunkOpts{
		MaxChunkSeconds: cfg.ChunkDurationSeconds(),
	})

	whisper := transcriber.NewWhisperTranscriber(client, transcriber.WithModel(cfg.WhisperModel))
	gpt := summarizer.NewOpenAISummarizer(client, summarizer.WithModel(cfg.SummaryModel))

	deps.Store = store
	deps.Files = files
	deps.Transcription = pipeline.NewTranscription(store, chunker, whisper, logger)
	deps.Summarization = pipeline.NewSummarization(store, gpt, logger,
		pipeline.WithMaxChunkChars(cfg.TranscriptMaxChars))
	deps.Transcribing = registry.New()
	deps.Summarizing = registry.New()
	deps.Email = notify.NewEmailClient(cfg.ResendAPIKey, cfg.EmailFrom)
	deps.Slack = notify.NewSlackClient(cfg.SlackWebhookURL)

	return deps, nil
}

// initStore creates the record store, Postgres when configured and in-memory
// otherwise.
func initStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (record.Store, error) {
	if !cfg.PostgresEnabled() {
		logger.Info("using in-memory record store")
		return record.NewMemoryStore(), nil
	}

	pg, err := record.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to Postgres: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("migrate Postgres schema: %w", err)
	}
	deps.closers = append(deps.closers, pg.Close)

	logger.Info("using Postgres record store")
	return pg, nil
}

// initStorage creates the appropriate upload storage based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.UploadDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 upload mirroring configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local upload storage configured",
		slog.String("upload_dir", localStore.UploadDir()),
	)
	return localStore, nil
}
