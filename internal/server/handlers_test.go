package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetnotes/meeting-notes-api/internal/config"
	"github.com/meetnotes/meeting-notes-api/internal/notify"
	"github.com/meetnotes/meeting-notes-api/internal/pipeline"
	"github.com/meetnotes/meeting-notes-api/internal/record"
	"github.com/meetnotes/meeting-notes-api/internal/registry"
	"github.com/meetnotes/meeting-notes-api/internal/storage"
	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// stubChunker never splits and reports a fixed duration.
type stubChunker struct{ duration float64 }

func (s *stubChunker) Chunk(_ context.Context, path string) ([]string, error) {
	return []string{path}, nil
}

func (s *stubChunker) Duration(_ context.Context, _ string) float64 { return s.duration }

// stubTranscriber returns fixed text, or an error when set.
type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

// stubSummarizer returns fixed notes, or an error when set.
type stubSummarizer struct {
	notes transcript.StructuredSummary
	err   error
}

func (s *stubSummarizer) Summarize(_ context.Context, _ string) (transcript.StructuredSummary, error) {
	return s.notes, s.err
}

type testEnv struct {
	handlers *Handlers
	router   http.Handler
	store    *record.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := record.NewMemoryStore()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := &config.Config{
		MaxFileSizeMB:     500,
		AllowedExtensions: []string{".mp3", ".mp4", ".wav", ".m4a"},
	}

	transcription := pipeline.NewTranscription(store, &stubChunker{duration: 90},
		&stubTranscriber{text: "stub transcript"}, logger)
	summarization := pipeline.NewSummarization(store,
		&stubSummarizer{notes: transcript.StructuredSummary{Summary: []string{"stub notes"}}}, logger)

	h := NewHandlers(Deps{
		Config:        cfg,
		Store:         store,
		Files:         files,
		Transcription: transcription,
		Summarization: summarization,
		Transcribing:  registry.New(),
		Summarizing:   registry.New(),
		Email:         notify.NewEmailClient("", ""),
		Slack:         notify.NewSlackClient(""),
	}, logger)

	return &testEnv{
		handlers: h,
		router:   NewRouter(h, logger, DefaultRouterConfig()),
		store:    store,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (e *testEnv) uploadFile(t *testing.T, filename string) string {
	t.Helper()
	rr := e.do(uploadRequest(t, filename, "fake audio bytes"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.FileID
}

func (e *testEnv) completeTranscription(t *testing.T, fileID string) {
	t.Helper()
	rec, err := e.store.GetRecording(context.Background(), fileID)
	require.NoError(t, err)
	require.NoError(t, rec.MarkProcessing())
	require.NoError(t, rec.Complete("a finished transcript"))
	require.NoError(t, e.store.SaveRecording(context.Background(), rec))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Zero(t, resp.TranscriptionsRunning)
	assert.Zero(t, resp.SummariesRunning)
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(uploadRequest(t, "standup.mp3", "fake audio bytes"))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.FileID)
	assert.Equal(t, "standup.mp3", resp.OriginalFilename)

	rec, err := env.store.GetRecording(context.Background(), resp.FileID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusPending, rec.Status)
	// The stored filename is the opaque ID, not the user's name.
	assert.NotContains(t, rec.FilePath, "standup")
	assert.Contains(t, rec.FilePath, resp.FileID)
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(uploadRequest(t, "malware.exe", "not audio"))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", decodeError(t, rr).Code)
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rr := env.do(req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "MISSING_FILE", decodeError(t, rr).Code)
}

func TestGetFile(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")

	rr := env.do(httptest.NewRequest(http.MethodGet, "/files/"+fileID, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp FileInfoResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, fileID, resp.FileID)
	assert.True(t, resp.Exists)
}

func TestGetFile_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/files/nonexistent", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "FILE_NOT_FOUND", decodeError(t, rr).Code)
}

func TestStartTranscription(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")

	rr := env.do(httptest.NewRequest(http.MethodPost, "/transcribe/"+fileID, nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp StartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, fileID, resp.FileID)
	assert.Equal(t, "processing", resp.Status)

	// The background run with stubbed dependencies finishes quickly.
	require.Eventually(t, func() bool {
		rec, err := env.store.GetRecording(context.Background(), fileID)
		return err == nil && rec.Status == record.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	rec, _ := env.store.GetRecording(context.Background(), fileID)
	assert.Equal(t, "stub transcript", rec.Transcript)
}

func TestStartTranscription_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodPost, "/transcribe/nonexistent", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStartTranscription_AlreadyCompleted(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	rr := env.do(httptest.NewRequest(http.MethodPost, "/transcribe/"+fileID, nil))

	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ALREADY_TRANSCRIBED", decodeError(t, rr).Code)
}

func TestStartTranscription_DuplicateRun(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")

	// Simulate an in-flight run holding the guard.
	require.True(t, env.handlers.transcribing.TryStart(fileID))
	defer env.handlers.transcribing.Finish(fileID)

	rr := env.do(httptest.NewRequest(http.MethodPost, "/transcribe/"+fileID, nil))

	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ALREADY_RUNNING", decodeError(t, rr).Code)
}

func TestTranscriptionStatus(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")

	rr := env.do(httptest.NewRequest(http.MethodGet, "/transcribe/"+fileID+"/status", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp TranscriptionStatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)
	assert.Empty(t, resp.Transcript)

	env.completeTranscription(t, fileID)
	rr = env.do(httptest.NewRequest(http.MethodGet, "/transcribe/"+fileID+"/status", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "a finished transcript", resp.Transcript)
	assert.NotEmpty(t, resp.CompletedAt)
}

func TestListTranscriptions(t *testing.T) {
	env := newTestEnv(t)
	first := env.uploadFile(t, "one.mp3")
	env.uploadFile(t, "two.mp3")
	env.completeTranscription(t, first)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/transcriptions", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp TranscriptionListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/transcriptions?status=completed", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, first, resp.Transcriptions[0].FileID)
}

func TestListTranscriptions_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/transcriptions?status=bogus", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_STATUS", decodeError(t, rr).Code)
}

func TestStartSummarization(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	rr := env.do(httptest.NewRequest(http.MethodPost, "/summarize/"+fileID, nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Eventually(t, func() bool {
		sum, err := env.store.GetSummaryForRecording(context.Background(), fileID)
		return err == nil && sum.Status == record.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	sum, _ := env.store.GetSummaryForRecording(context.Background(), fileID)
	assert.Equal(t, []string{"stub notes"}, sum.Notes.Summary)
}

func TestStartSummarization_TranscriptNotReady(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")

	rr := env.do(httptest.NewRequest(http.MethodPost, "/summarize/"+fileID, nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "TRANSCRIPT_NOT_READY", decodeError(t, rr).Code)
}

func TestStartSummarization_SummaryExists(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	sum := record.NewSummary(fileID)
	require.NoError(t, sum.MarkProcessing())
	require.NoError(t, sum.Complete(transcript.StructuredSummary{Summary: []string{"done"}}))
	require.NoError(t, env.store.SaveSummary(context.Background(), sum))

	rr := env.do(httptest.NewRequest(http.MethodPost, "/summarize/"+fileID, nil))

	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "SUMMARY_EXISTS", decodeError(t, rr).Code)
}

func TestSummaryStatus_NotStarted(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")

	rr := env.do(httptest.NewRequest(http.MethodGet, "/summarize/"+fileID+"/status", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp SummaryStatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "not_started", resp.Status)
}

func TestSummaryStatus_Completed(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	sum := record.NewSummary(fileID)
	require.NoError(t, sum.MarkProcessing())
	require.NoError(t, sum.Complete(transcript.StructuredSummary{
		Summary:     []string{"the notes"},
		ActionItems: []transcript.ActionItem{{Task: "do thing", Owner: "sam"}},
	}))
	require.NoError(t, env.store.SaveSummary(context.Background(), sum))

	rr := env.do(httptest.NewRequest(http.MethodGet, "/summarize/"+fileID+"/status", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp SummaryStatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, []string{"the notes"}, resp.Summary)
	require.Len(t, resp.ActionItems, 1)
	assert.Equal(t, "sam", resp.ActionItems[0].Owner)
}

func TestNotifyEmail_SummaryNotReady(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	sum := record.NewSummary(fileID)
	require.NoError(t, sum.MarkProcessing())
	require.NoError(t, env.store.SaveSummary(context.Background(), sum))

	body := strings.NewReader(`{"email": "alex@example.com"}`)
	rr := env.do(httptest.NewRequest(http.MethodPost, "/notify/"+fileID+"/email", body))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "SUMMARY_NOT_READY", resp.Code)
	// The error names the summary's current state.
	assert.Contains(t, resp.Error, "processing")
}

func TestNotifyEmail_InvalidAddress(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")

	body := strings.NewReader(`{"email": "not-an-email"}`)
	rr := env.do(httptest.NewRequest(http.MethodPost, "/notify/"+fileID+"/email", body))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rr).Code)
}

func TestNotifyEmail_Sends(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	sum := record.NewSummary(fileID)
	require.NoError(t, sum.MarkProcessing())
	require.NoError(t, sum.Complete(transcript.StructuredSummary{Summary: []string{"notes"}}))
	require.NoError(t, env.store.SaveSummary(context.Background(), sum))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "msg_1"}`))
	}))
	defer srv.Close()
	env.handlers.email = notify.NewEmailClient("key", "notes@example.com",
		notify.WithEmailBaseURL(srv.URL))

	body := strings.NewReader(`{"email": "alex@example.com"}`)
	rr := env.do(httptest.NewRequest(http.MethodPost, "/notify/"+fileID+"/email", body))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp NotifyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "alex@example.com", resp.Email)
}

func TestNotifyEmail_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	sum := record.NewSummary(fileID)
	require.NoError(t, sum.MarkProcessing())
	require.NoError(t, sum.Complete(transcript.StructuredSummary{Summary: []string{"notes"}}))
	require.NoError(t, env.store.SaveSummary(context.Background(), sum))

	body := strings.NewReader(`{"email": "alex@example.com"}`)
	rr := env.do(httptest.NewRequest(http.MethodPost, "/notify/"+fileID+"/email", body))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "EMAIL_NOT_CONFIGURED", decodeError(t, rr).Code)
}

func TestNotifySlack_Sends(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	sum := record.NewSummary(fileID)
	require.NoError(t, sum.MarkProcessing())
	require.NoError(t, sum.Complete(transcript.StructuredSummary{Summary: []string{"notes"}}))
	require.NoError(t, env.store.SaveSummary(context.Background(), sum))

	var posted slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&posted)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body := strings.NewReader(fmt.Sprintf(`{"webhook_url": %q}`, srv.URL))
	rr := env.do(httptest.NewRequest(http.MethodPost, "/notify/"+fileID+"/slack", body))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, posted.Text, "Meeting Notes: standup.mp3")
	assert.Contains(t, posted.Text, "- notes")
}

type slackPayload struct {
	Text string `json:"text"`
}

func TestNotifySlack_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	fileID := env.uploadFile(t, "standup.mp3")
	env.completeTranscription(t, fileID)

	sum := record.NewSummary(fileID)
	require.NoError(t, sum.MarkProcessing())
	require.NoError(t, sum.Complete(transcript.StructuredSummary{Summary: []string{"notes"}}))
	require.NoError(t, env.store.SaveSummary(context.Background(), sum))

	rr := env.do(httptest.NewRequest(http.MethodPost, "/notify/"+fileID+"/slack", strings.NewReader("{}")))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "SLACK_NOT_CONFIGURED", decodeError(t, rr).Code)
}
