// Package server provides the HTTP server for the Meeting Notes API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "github.com/meetnotes/meeting-notes-api/internal/transcript"

// UploadResponse is the HTTP response after uploading a recording.
type UploadResponse struct {
	// Message is a human-readable confirmation.
	Message string `json:"message"`
	// FileID is the opaque identifier for the uploaded recording.
	FileID string `json:"file_id"`
	// OriginalFilename is the name the file was uploaded with.
	OriginalFilename string `json:"original_filename"`
	// SizeMB is the upload size in megabytes.
	SizeMB float64 `json:"size_mb"`
}

// FileInfoResponse is the HTTP response for upload lookups.
type FileInfoResponse struct {
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	SizeMB   float64 `json:"size_mb"`
	Exists   bool    `json:"exists"`
}

// StartResponse is the HTTP response after starting a background pipeline.
type StartResponse struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
	Status  string `json:"status"`
}

// TranscriptionStatusResponse is the HTTP response for transcription polling.
type TranscriptionStatusResponse struct {
	FileID           string  `json:"file_id"`
	Status           string  `json:"status"`
	Progress         int     `json:"progress"`
	OriginalFilename string  `json:"original_filename"`
	Transcript       string  `json:"transcript,omitempty"`
	DurationSeconds  float64 `json:"duration_seconds,omitempty"`
	CompletedAt      string  `json:"completed_at,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// TranscriptionListItem is one entry in the transcription listing.
type TranscriptionListItem struct {
	FileID           string `json:"file_id"`
	OriginalFilename string `json:"original_filename"`
	Status           string `json:"status"`
	Progress         int    `json:"progress"`
	CreatedAt        string `json:"created_at"`
}

// TranscriptionListResponse is the HTTP response for GET /transcriptions.
type TranscriptionListResponse struct {
	Count          int                     `json:"count"`
	Transcriptions []TranscriptionListItem `json:"transcriptions"`
}

// SummaryStatusResponse is the HTTP response for summarization polling.
type SummaryStatusResponse struct {
	FileID            string                  `json:"file_id"`
	Status            string                  `json:"status"`
	OriginalFilename  string                  `json:"original_filename,omitempty"`
	Message           string                  `json:"message,omitempty"`
	Summary           []string                `json:"summary,omitempty"`
	ActionItems       []transcript.ActionItem `json:"action_items,omitempty"`
	KeyDecisions      []string                `json:"key_decisions,omitempty"`
	FollowUpQuestions []string                `json:"follow_up_questions,omitempty"`
	CompletedAt       string                  `json:"completed_at,omitempty"`
	Error             string                  `json:"error,omitempty"`
}

// SummaryListItem is one entry in the summary listing.
type SummaryListItem struct {
	FileID      string `json:"file_id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// SummaryListResponse is the HTTP response for GET /summaries.
type SummaryListResponse struct {
	Count     int               `json:"count"`
	Summaries []SummaryListItem `json:"summaries"`
}

// EmailRequest is the HTTP request body for email notifications.
type EmailRequest struct {
	// Email is the recipient address.
	Email string `json:"email" validate:"required,email"`
	// Subject overrides the default subject line when set.
	Subject string `json:"subject"`
}

// SlackRequest is the HTTP request body for Slack notifications.
type SlackRequest struct {
	// WebhookURL overrides the configured webhook when set.
	WebhookURL string `json:"webhook_url" validate:"omitempty,url"`
}

// NotifyResponse is the HTTP response after a notification was delivered.
type NotifyResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
	ID      string `json:"id,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// TranscriptionsRunning is the number of in-flight transcription jobs.
	TranscriptionsRunning int `json:"transcriptions_running"`
	// SummariesRunning is the number of in-flight summarization jobs.
	SummariesRunning int `json:"summaries_running"`
}
