package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meetnotes/meeting-notes-api/internal/config"
	"github.com/meetnotes/meeting-notes-api/internal/notify"
	"github.com/meetnotes/meeting-notes-api/internal/pipeline"
	"github.com/meetnotes/meeting-notes-api/internal/record"
	"github.com/meetnotes/meeting-notes-api/internal/registry"
	"github.com/meetnotes/meeting-notes-api/internal/storage"
)

// Handlers contains the HTTP handlers for the API.
//
// The handlers own the duplicate-run guards: a pipeline goroutine is only
// spawned after TryStart succeeds, and the registry entry is always released
// by the spawning goroutine, on success and failure alike.
type Handlers struct {
	cfg           *config.Config
	store         record.Store
	files         storage.Storage
	transcription *pipeline.Transcription
	summarization *pipeline.Summarization
	transcribing  *registry.Registry
	summarizing   *registry.Registry
	email         *notify.EmailClient
	slack         *notify.SlackClient
	validator     *validator.Validate
	logger        *slog.Logger
}

// Deps bundles everything the handlers need.
type Deps struct {
	Config        *config.Config
	Store         record.Store
	Files         storage.Storage
	Transcription *pipeline.Transcription
	Summarization *pipeline.Summarization
	Transcribing  *registry.Registry
	Summarizing   *registry.Registry
	Email         *notify.EmailClient
	Slack         *notify.SlackClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		cfg:           deps.Config,
		store:         deps.Store,
		files:         deps.Files,
		transcription: deps.Transcription,
		summarization: deps.Summarization,
		transcribing:  deps.Transcribing,
		summarizing:   deps.Summarizing,
		email:         deps.Email,
		slack:         deps.Slack,
		validator:     validator.New(),
		logger:        logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:                "ok",
		TranscriptionsRunning: h.transcribing.Running(),
		SummariesRunning:      h.summarizing.Running(),
	})
}

// Upload handles POST /upload requests with a multipart "file" field.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.cfg.MaxFileSizeMB) << 20
	// Leave headroom for the multipart framing itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a multipart \"file\" field is required", "MISSING_FILE")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no filename provided", "MISSING_FILENAME")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !h.cfg.ExtensionAllowed(ext) {
		msg := fmt.Sprintf("file type not allowed, supported formats: %s",
			strings.Join(h.cfg.AllowedExtensions, ", "))
		writeError(w, http.StatusBadRequest, msg, "UNSUPPORTED_FILE_TYPE")
		return
	}

	if header.Size > maxBytes {
		msg := fmt.Sprintf("file too large, max size is %dMB", h.cfg.MaxFileSizeMB)
		writeError(w, http.StatusBadRequest, msg, "FILE_TOO_LARGE")
		return
	}

	fileID := uuid.NewString()
	path, err := h.files.SaveUpload(r.Context(), fileID+ext, file)
	if err != nil {
		h.logger.Error("failed to save upload",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save upload", "UPLOAD_FAILED")
		return
	}

	sizeMB := roundMB(header.Size)
	rec := record.NewRecording(fileID, header.Filename, path, sizeMB)
	if err := h.store.SaveRecording(r.Context(), rec); err != nil {
		h.logger.Error("failed to save recording",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save recording", "RECORD_SAVE_FAILED")
		return
	}

	h.mirrorToS3(r.Context(), fileID+ext, path)

	h.logger.Info("file uploaded",
		slog.String("file_id", fileID),
		slog.String("filename", header.Filename),
		slog.Float64("size_mb", sizeMB),
	)

	writeJSON(w, http.StatusCreated, UploadResponse{
		Message:          "File uploaded successfully",
		FileID:           fileID,
		OriginalFilename: header.Filename,
		SizeMB:           sizeMB,
	})
}

// mirrorToS3 copies the upload to the configured bucket, best-effort.
func (h *Handlers) mirrorToS3(ctx context.Context, key, path string) {
	f, err := h.files.Open(ctx, path)
	if err != nil {
		h.logger.Warn("failed to reopen upload for S3 mirror",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.files.UploadToS3(ctx, key, f)
	if err != nil {
		if !errors.Is(err, storage.ErrS3NotConfigured) {
			h.logger.Warn("failed to mirror upload to S3",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	h.logger.Info("upload mirrored to S3", slog.String("url", url))
}

// GetFile handles GET /files/{id} requests.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	rec, err := h.store.GetRecording(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, record.ErrRecordingNotFound) {
			writeError(w, http.StatusNotFound, "file not found", "FILE_NOT_FOUND")
			return
		}
		h.internalError(w, "failed to load recording", fileID, err)
		return
	}

	writeJSON(w, http.StatusOK, FileInfoResponse{
		FileID:   rec.FileID,
		Filename: filepath.Base(rec.FilePath),
		SizeMB:   rec.FileSizeMB,
		Exists:   true,
	})
}

// StartTranscription handles POST /transcribe/{id} requests.
// It kicks off a detached background run; poll the status endpoint for
// progress. Completed recordings are not re-run; failed ones are.
func (h *Handlers) StartTranscription(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	rec, err := h.store.GetRecording(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, record.ErrRecordingNotFound) {
			writeError(w, http.StatusNotFound, "file not found", "FILE_NOT_FOUND")
			return
		}
		h.internalError(w, "failed to load recording", fileID, err)
		return
	}

	if rec.Status == record.StatusCompleted {
		writeError(w, http.StatusConflict, "file already transcribed", "ALREADY_TRANSCRIBED")
		return
	}

	if !h.transcribing.TryStart(fileID) {
		writeError(w, http.StatusConflict, "transcription already in progress", "ALREADY_RUNNING")
		return
	}

	go func(ctx context.Context) {
		defer h.transcribing.Finish(fileID)
		if err := h.transcription.Run(ctx, fileID); err != nil {
			h.logger.Error("transcription failed",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(r.Context()))

	writeJSON(w, http.StatusAccepted, StartResponse{
		Message: "Transcription started",
		FileID:  fileID,
		Status:  string(record.StatusProcessing),
	})
}

// TranscriptionStatus handles GET /transcribe/{id}/status requests.
func (h *Handlers) TranscriptionStatus(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	rec, err := h.store.GetRecording(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, record.ErrRecordingNotFound) {
			writeError(w, http.StatusNotFound, "file not found", "FILE_NOT_FOUND")
			return
		}
		h.internalError(w, "failed to load recording", fileID, err)
		return
	}

	resp := TranscriptionStatusResponse{
		FileID:           rec.FileID,
		Status:           string(rec.Status),
		Progress:         rec.Progress,
		OriginalFilename: rec.OriginalFilename,
	}

	switch rec.Status {
	case record.StatusCompleted:
		resp.Transcript = rec.Transcript
		resp.DurationSeconds = rec.DurationSeconds
		resp.CompletedAt = formatTime(rec.CompletedAt)
	case record.StatusFailed:
		resp.Error = rec.Error
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListTranscriptions handles GET /transcriptions requests with an optional
// ?status= filter.
func (h *Handlers) ListTranscriptions(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}

	recs, err := h.store.ListRecordings(r.Context(), status)
	if err != nil {
		h.internalError(w, "failed to list recordings", "", err)
		return
	}

	items := make([]TranscriptionListItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, TranscriptionListItem{
			FileID:           rec.FileID,
			OriginalFilename: rec.OriginalFilename,
			Status:           string(rec.Status),
			Progress:         rec.Progress,
			CreatedAt:        formatTime(rec.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, TranscriptionListResponse{
		Count:          len(items),
		Transcriptions: items,
	})
}

// StartSummarization handles POST /summarize/{id} requests.
func (h *Handlers) StartSummarization(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	rec, err := h.store.GetRecording(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, record.ErrRecordingNotFound) {
			writeError(w, http.StatusNotFound, "transcription not found", "FILE_NOT_FOUND")
			return
		}
		h.internalError(w, "failed to load recording", fileID, err)
		return
	}

	if rec.Status != record.StatusCompleted || rec.Transcript == "" {
		writeError(w, http.StatusBadRequest,
			"transcription must be completed before summarizing", "TRANSCRIPT_NOT_READY")
		return
	}

	if sum, err := h.store.GetSummaryForRecording(r.Context(), fileID); err == nil &&
		sum.Status == record.StatusCompleted {
		writeError(w, http.StatusConflict, "summary already exists", "SUMMARY_EXISTS")
		return
	}

	if !h.summarizing.TryStart(fileID) {
		writeError(w, http.StatusConflict, "summarization already in progress", "ALREADY_RUNNING")
		return
	}

	go func(ctx context.Context) {
		defer h.summarizing.Finish(fileID)
		if err := h.summarization.Run(ctx, fileID); err != nil {
			h.logger.Error("summarization failed",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(r.Context()))

	writeJSON(w, http.StatusAccepted, StartResponse{
		Message: "Summarization started",
		FileID:  fileID,
		Status:  string(record.StatusProcessing),
	})
}

// SummaryStatus handles GET /summarize/{id}/status requests.
func (h *Handlers) SummaryStatus(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	rec, err := h.store.GetRecording(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, record.ErrRecordingNotFound) {
			writeError(w, http.StatusNotFound, "transcription not found", "FILE_NOT_FOUND")
			return
		}
		h.internalError(w, "failed to load recording", fileID, err)
		return
	}

	sum, err := h.store.GetSummaryForRecording(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, record.ErrSummaryNotFound) {
			writeJSON(w, http.StatusOK, SummaryStatusResponse{
				FileID:  fileID,
				Status:  "not_started",
				Message: "Summary has not been requested yet",
			})
			return
		}
		h.internalError(w, "failed to load summary", fileID, err)
		return
	}

	resp := SummaryStatusResponse{
		FileID:           fileID,
		Status:           string(sum.Status),
		OriginalFilename: rec.OriginalFilename,
	}

	switch sum.Status {
	case record.StatusCompleted:
		resp.Summary = sum.Notes.Summary
		resp.ActionItems = sum.Notes.ActionItems
		resp.KeyDecisions = sum.Notes.KeyDecisions
		resp.FollowUpQuestions = sum.Notes.FollowUpQuestions
		resp.CompletedAt = formatTime(sum.CompletedAt)
	case record.StatusFailed:
		resp.Error = sum.Error
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListSummaries handles GET /summaries requests with an optional ?status=
// filter.
func (h *Handlers) ListSummaries(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}

	sums, err := h.store.ListSummaries(r.Context(), status)
	if err != nil {
		h.internalError(w, "failed to list summaries", "", err)
		return
	}

	items := make([]SummaryListItem, 0, len(sums))
	for _, sum := range sums {
		items = append(items, SummaryListItem{
			FileID:      sum.FileID,
			Status:      string(sum.Status),
			CreatedAt:   formatTime(sum.CreatedAt),
			CompletedAt: formatTime(sum.CompletedAt),
		})
	}

	writeJSON(w, http.StatusOK, SummaryListResponse{
		Count:     len(items),
		Summaries: items,
	})
}

// NotifyEmail handles POST /notify/{id}/email requests.
func (h *Handlers) NotifyEmail(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	sum, filename, ok := h.completedSummary(w, r, fileID)
	if !ok {
		return
	}

	id, err := h.email.SendSummary(r.Context(), req.Email, req.Subject, filename, sum.Notes)
	if err != nil {
		if errors.Is(err, notify.ErrEmailNotConfigured) {
			writeError(w, http.StatusBadRequest, err.Error(), "EMAIL_NOT_CONFIGURED")
			return
		}
		h.logger.Error("email delivery failed",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to send email", "EMAIL_DELIVERY_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, NotifyResponse{
		Message: "Email sent successfully",
		Email:   req.Email,
		ID:      id,
	})
}

// NotifySlack handles POST /notify/{id}/slack requests.
func (h *Handlers) NotifySlack(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	// The body is optional; an empty one uses the configured webhook.
	var req SlackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	sum, filename, ok := h.completedSummary(w, r, fileID)
	if !ok {
		return
	}

	if err := h.slack.SendSummary(r.Context(), req.WebhookURL, filename, sum.Notes); err != nil {
		if errors.Is(err, notify.ErrSlackNotConfigured) {
			writeError(w, http.StatusBadRequest, err.Error(), "SLACK_NOT_CONFIGURED")
			return
		}
		h.logger.Error("slack delivery failed",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to send to Slack", "SLACK_DELIVERY_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, NotifyResponse{
		Message: "Sent to Slack successfully",
	})
}

// completedSummary loads the recording and its completed summary, writing
// the appropriate error response when either precondition fails.
func (h *Handlers) completedSummary(w http.ResponseWriter, r *http.Request, fileID string) (*record.Summary, string, bool) {
	rec, err := h.store.GetRecording(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, record.ErrRecordingNotFound) {
			writeError(w, http.StatusNotFound, "file not found", "FILE_NOT_FOUND")
			return nil, "", false
		}
		h.internalError(w, "failed to load recording", fileID, err)
		return nil, "", false
	}

	sum, err := h.store.GetSummaryForRecording(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, record.ErrSummaryNotFound) {
			writeError(w, http.StatusBadRequest,
				"summary not generated yet, run summarization first", "SUMMARY_NOT_STARTED")
			return nil, "", false
		}
		h.internalError(w, "failed to load summary", fileID, err)
		return nil, "", false
	}

	if sum.Status != record.StatusCompleted {
		msg := fmt.Sprintf("summary is %s, wait for completion", sum.Status)
		writeError(w, http.StatusBadRequest, msg, "SUMMARY_NOT_READY")
		return nil, "", false
	}

	return sum, rec.OriginalFilename, true
}

// statusFilter parses the optional ?status= query parameter. On an invalid
// value it writes a 400 response and returns ok=false.
func statusFilter(w http.ResponseWriter, r *http.Request) (record.Status, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", true
	}
	status := record.Status(raw)
	if !status.IsValid() {
		writeError(w, http.StatusBadRequest,
			"invalid status, use: pending, processing, completed, failed", "INVALID_STATUS")
		return "", false
	}
	return status, true
}

// internalError logs the error and writes a generic 500 response.
func (h *Handlers) internalError(w http.ResponseWriter, msg, fileID string, err error) {
	h.logger.Error(msg,
		slog.String("file_id", fileID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, msg, "INTERNAL_ERROR")
}

// formatTime renders a timestamp as RFC 3339, or empty for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// roundMB converts a byte count to megabytes rounded to two decimals.
func roundMB(size int64) float64 {
	mb := float64(size) / (1 << 20)
	return float64(int(mb*100+0.5)) / 100
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
