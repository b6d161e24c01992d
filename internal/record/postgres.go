package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// schema creates the record tables. Summary bullet lists live in text[]
// columns and action items in jsonb, so the structured fields stay queryable
// instead of being flattened into opaque text blobs.
const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	file_id           TEXT PRIMARY KEY,
	original_filename TEXT NOT NULL,
	file_path         TEXT NOT NULL,
	file_size_mb      DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration_seconds  DOUBLE PRECISION NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	transcript        TEXT NOT NULL DEFAULT '',
	progress          INTEGER NOT NULL DEFAULT 0,
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	completed_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS summaries (
	file_id             TEXT PRIMARY KEY REFERENCES recordings(file_id) ON DELETE CASCADE,
	status              TEXT NOT NULL,
	summary_bullets     TEXT[] NOT NULL DEFAULT '{}',
	action_items        JSONB NOT NULL DEFAULT '[]',
	key_decisions       TEXT[] NOT NULL DEFAULT '{}',
	follow_up_questions TEXT[] NOT NULL DEFAULT '{}',
	error_message       TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	completed_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_recordings_status ON recordings (status);
CREATE INDEX IF NOT EXISTS idx_summaries_status ON summaries (status);
`

// PostgresStore is the pgx-backed implementation of Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore from a DSN, establishes the
// connection pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// SaveRecording upserts a recording keyed by file ID.
func (s *PostgresStore) SaveRecording(ctx context.Context, rec *Recording) error {
	const q = `INSERT INTO recordings
		(file_id, original_filename, file_path, file_size_mb, duration_seconds,
		 status, transcript, progress, error_message, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (file_id) DO UPDATE SET
			duration_seconds = EXCLUDED.duration_seconds,
			status = EXCLUDED.status,
			transcript = EXCLUDED.transcript,
			progress = EXCLUDED.progress,
			error_message = EXCLUDED.error_message,
			completed_at = EXCLUDED.completed_at`
	_, err := s.pool.Exec(ctx, q,
		rec.FileID, rec.OriginalFilename, rec.FilePath, rec.FileSizeMB, rec.DurationSeconds,
		string(rec.Status), rec.Transcript, rec.Progress, rec.Error, rec.CreatedAt, nullableTime(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save recording: %w", err)
	}
	return nil
}

// GetRecording retrieves a recording by file ID.
func (s *PostgresStore) GetRecording(ctx context.Context, fileID string) (*Recording, error) {
	const q = `SELECT file_id, original_filename, file_path, file_size_mb, duration_seconds,
			status, transcript, progress, error_message, created_at, completed_at
		FROM recordings WHERE file_id = $1`
	rec, err := scanRecording(s.pool.QueryRow(ctx, q, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordingNotFound
		}
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// ListRecordings returns all recordings, optionally filtered by status.
func (s *PostgresStore) ListRecordings(ctx context.Context, status Status) ([]*Recording, error) {
	q := `SELECT file_id, original_filename, file_path, file_size_mb, duration_seconds,
			status, transcript, progress, error_message, created_at, completed_at
		FROM recordings`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var result []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("list recordings: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// SaveSummary upserts the summary for a recording.
func (s *PostgresStore) SaveSummary(ctx context.Context, sum *Summary) error {
	actionItems, err := json.Marshal(notNilItems(sum.Notes.ActionItems))
	if err != nil {
		return fmt.Errorf("marshal action items: %w", err)
	}

	const q = `INSERT INTO summaries
		(file_id, status, summary_bullets, action_items, key_decisions,
		 follow_up_questions, error_message, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (file_id) DO UPDATE SET
			status = EXCLUDED.status,
			summary_bullets = EXCLUDED.summary_bullets,
			action_items = EXCLUDED.action_items,
			key_decisions = EXCLUDED.key_decisions,
			follow_up_questions = EXCLUDED.follow_up_questions,
			error_message = EXCLUDED.error_message,
			completed_at = EXCLUDED.completed_at`
	_, err = s.pool.Exec(ctx, q,
		sum.FileID, string(sum.Status), notNilStrings(sum.Notes.Summary), actionItems,
		notNilStrings(sum.Notes.KeyDecisions), notNilStrings(sum.Notes.FollowUpQuestions), sum.Error,
		sum.CreatedAt, nullableTime(sum.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// GetSummaryForRecording retrieves the summary for a recording.
func (s *PostgresStore) GetSummaryForRecording(ctx context.Context, fileID string) (*Summary, error) {
	const q = `SELECT file_id, status, summary_bullets, action_items, key_decisions,
			follow_up_questions, error_message, created_at, completed_at
		FROM summaries WHERE file_id = $1`
	sum, err := scanSummary(s.pool.QueryRow(ctx, q, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return sum, nil
}

// ListSummaries returns all summaries, optionally filtered by status.
func (s *PostgresStore) ListSummaries(ctx context.Context, status Status) ([]*Summary, error) {
	q := `SELECT file_id, status, summary_bullets, action_items, key_decisions,
			follow_up_questions, error_message, created_at, completed_at
		FROM summaries`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var result []*Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("list summaries: %w", err)
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

// scanRecording reads one recording row.
func scanRecording(row pgx.Row) (*Recording, error) {
	var rec Recording
	var status string
	var completedAt *time.Time
	err := row.Scan(
		&rec.FileID, &rec.OriginalFilename, &rec.FilePath, &rec.FileSizeMB,
		&rec.DurationSeconds, &status, &rec.Transcript, &rec.Progress,
		&rec.Error, &rec.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	if completedAt != nil {
		rec.CompletedAt = *completedAt
	}
	return &rec, nil
}

// scanSummary reads one summary row.
func scanSummary(row pgx.Row) (*Summary, error) {
	var sum Summary
	var status string
	var actionItems []byte
	var completedAt *time.Time
	err := row.Scan(
		&sum.FileID, &status, &sum.Notes.Summary, &actionItems,
		&sum.Notes.KeyDecisions, &sum.Notes.FollowUpQuestions,
		&sum.Error, &sum.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	sum.Status = Status(status)
	if completedAt != nil {
		sum.CompletedAt = *completedAt
	}
	sum.Notes.ActionItems = []transcript.ActionItem{}
	if len(actionItems) > 0 {
		if err := json.Unmarshal(actionItems, &sum.Notes.ActionItems); err != nil {
			return nil, fmt.Errorf("unmarshal action items: %w", err)
		}
	}
	return &sum, nil
}

// notNilStrings maps a nil slice to an empty one so NOT NULL array columns
// never receive NULL.
func notNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// notNilItems maps a nil action item slice to an empty one.
func notNilItems(s []transcript.ActionItem) []transcript.ActionItem {
	if s == nil {
		return []transcript.ActionItem{}
	}
	return s
}

// nullableTime maps a zero time to NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
