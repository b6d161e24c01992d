// Package watcher monitors an inbox directory and feeds dropped recordings
// through the transcription and summarization pipelines automatically.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/meetnotes/meeting-notes-api/internal/pipeline"
	"github.com/meetnotes/meeting-notes-api/internal/record"
	"github.com/meetnotes/meeting-notes-api/internal/registry"
	"github.com/meetnotes/meeting-notes-api/internal/storage"
)

// settleInterval is how long a file's size must stay unchanged before it is
// considered fully written.
const settleInterval = 500 * time.Millisecond

// settleChecks is how many stable size readings are required.
const settleChecks = 3

// Deps bundles everything the watcher needs to process a dropped file.
type Deps struct {
	Store         record.Store
	Files         storage.Storage
	Transcription *pipeline.Transcription
	Summarization *pipeline.Summarization
	Transcribing  *registry.Registry
	Summarizing   *registry.Registry
}

// Watcher watches a directory and processes new recordings as they appear.
type Watcher struct {
	dir        string
	extAllowed func(string) bool
	deps       Deps
	logger     *slog.Logger
	fsw        *fsnotify.Watcher
	wg         sync.WaitGroup
}

// New creates a Watcher for dir. The extAllowed predicate receives the
// lowercase file extension including the leading dot.
func New(dir string, extAllowed func(string) bool, deps Deps, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:        dir,
		extAllowed: extAllowed,
		deps:       deps,
		logger:     logger,
		fsw:        fsw,
	}, nil
}

// Run processes filesystem events until the context is cancelled. It waits
// for in-flight files before returning.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("inbox watcher started", slog.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.wg.Wait()
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Op.Has(fsnotify.Create) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if !w.extAllowed(ext) {
				w.logger.Debug("ignoring file with unsupported extension",
					slog.String("path", event.Name))
				continue
			}

			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				if err := w.process(ctx, path); err != nil {
					w.logger.Error("failed to process inbox file",
						slog.String("path", path),
						slog.String("error", err.Error()),
					)
				}
			}(event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.wg.Wait()
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// process registers the dropped file and runs both pipelines over it.
func (w *Watcher) process(ctx context.Context, path string) error {
	if err := w.waitSettled(ctx, path); err != nil {
		return err
	}

	fileID, err := w.register(ctx, path)
	if err != nil {
		return err
	}

	w.logger.Info("processing inbox file",
		slog.String("path", path),
		slog.String("file_id", fileID),
	)

	if !w.deps.Transcribing.TryStart(fileID) {
		return fmt.Errorf("transcription already running for %s", fileID)
	}
	err = func() error {
		defer w.deps.Transcribing.Finish(fileID)
		return w.deps.Transcription.Run(ctx, fileID)
	}()
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", fileID, err)
	}

	if !w.deps.Summarizing.TryStart(fileID) {
		return fmt.Errorf("summarization already running for %s", fileID)
	}
	err = func() error {
		defer w.deps.Summarizing.Finish(fileID)
		return w.deps.Summarization.Run(ctx, fileID)
	}()
	if err != nil {
		return fmt.Errorf("summarize %s: %w", fileID, err)
	}

	w.logger.Info("inbox file processed", slog.String("file_id", fileID))
	return nil
}

// waitSettled blocks until the file size has been stable for a few
// consecutive readings, so a partially written file is never picked up.
func (w *Watcher) waitSettled(ctx context.Context, path string) error {
	var lastSize int64 = -1
	stable := 0

	for stable < settleChecks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settleInterval):
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() == lastSize {
			stable++
		} else {
			stable = 0
			lastSize = info.Size()
		}
	}
	return nil
}

// register copies the file into upload storage and creates its recording.
func (w *Watcher) register(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from the watched dir
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	fileID := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(path))
	saved, err := w.deps.Files.SaveUpload(ctx, fileID+ext, f)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	sizeMB := float64(info.Size()) / (1 << 20)
	rec := record.NewRecording(fileID, filepath.Base(path), saved, sizeMB)
	if err := w.deps.Store.SaveRecording(ctx, rec); err != nil {
		return "", fmt.Errorf("save recording: %w", err)
	}

	return fileID, nil
}
