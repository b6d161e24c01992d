// Package record provides the Recording and Summary entities that track an
// uploaded meeting recording through transcription and summarization, along
// with the Store interface for persistence.
package record

import (
	"errors"
	"time"

	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

// Status represents where a recording or summary is in its pipeline.
type Status string

const (
	// StatusPending indicates the work has not started yet.
	StatusPending Status = "pending"
	// StatusProcessing indicates the pipeline is currently running.
	StatusProcessing Status = "processing"
	// StatusCompleted indicates the pipeline finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the pipeline encountered an error.
	StatusFailed Status = "failed"
)

// IsValid returns true if the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
// A failed job may go back to processing when explicitly re-run.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {StatusProcessing},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Recording represents one uploaded audio/video file and its transcription
// state. One record per uploaded file, keyed by FileID.
type Recording struct {
	// FileID is the opaque unique identifier, distinct from the stored filename.
	FileID string
	// OriginalFilename is the name the file was uploaded with.
	OriginalFilename string
	// FilePath is where the file lives on disk.
	FilePath string
	// FileSizeMB is the upload size in megabytes.
	FileSizeMB float64
	// DurationSeconds is the audio duration; zero until computed.
	DurationSeconds float64
	// Status is the current transcription state.
	Status Status
	// Transcript is the full transcript text once completed.
	Transcript string
	// Progress is the percentage of segments transcribed (0-100).
	Progress int
	// Error contains the failure message when Status is failed.
	Error string
	// CreatedAt is when the file was uploaded.
	CreatedAt time.Time
	// CompletedAt is when transcription finished; zero until then.
	CompletedAt time.Time
}

// NewRecording creates a pending Recording for a freshly uploaded file.
func NewRecording(fileID, originalFilename, filePath string, sizeMB float64) *Recording {
	return &Recording{
		FileID:           fileID,
		OriginalFilename: originalFilename,
		FilePath:         filePath,
		FileSizeMB:       sizeMB,
		Status:           StatusPending,
		CreatedAt:        time.Now().UTC(),
	}
}

// MarkProcessing transitions the recording into the processing state and
// resets progress. Returns ErrInvalidTransition if transcription already
// completed.
func (r *Recording) MarkProcessing() error {
	if !canTransition(r.Status, StatusProcessing) {
		return ErrInvalidTransition
	}
	r.Status = StatusProcessing
	r.Progress = 0
	r.Error = ""
	return nil
}

// SetProgress updates the progress percentage. Progress never moves backwards
// while processing.
func (r *Recording) SetProgress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct > r.Progress {
		r.Progress = pct
	}
}

// Complete stores the final transcript and marks the recording completed
// with progress 100.
func (r *Recording) Complete(transcriptText string) error {
	if !canTransition(r.Status, StatusCompleted) {
		return ErrInvalidTransition
	}
	r.Transcript = transcriptText
	r.Status = StatusCompleted
	r.Progress = 100
	r.CompletedAt = time.Now().UTC()
	return nil
}

// Fail marks the recording failed with an error message. Progress keeps its
// last persisted value so a poller can see how far the run got.
func (r *Recording) Fail(msg string) {
	r.Status = StatusFailed
	r.Error = msg
}

// Clone creates a deep copy of the recording for safe reads.
func (r *Recording) Clone() *Recording {
	c := *r
	return &c
}

// Summary represents the structured meeting notes generated for one
// Recording. At most one Summary exists per Recording.
type Summary struct {
	// FileID identifies the parent recording (unique).
	FileID string
	// Status is the current summarization state, independent of the
	// recording's own lifecycle.
	Status Status
	// Notes holds the four extracted lists.
	Notes transcript.StructuredSummary
	// Error contains the failure message when Status is failed.
	Error string
	// CreatedAt is when summarization was first requested.
	CreatedAt time.Time
	// CompletedAt is when summarization finished; zero until then.
	CompletedAt time.Time
}

// NewSummary creates a pending Summary for a recording.
func NewSummary(fileID string) *Summary {
	return &Summary{
		FileID:    fileID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkProcessing transitions the summary into the processing state.
func (s *Summary) MarkProcessing() error {
	if !canTransition(s.Status, StatusProcessing) {
		return ErrInvalidTransition
	}
	s.Status = StatusProcessing
	s.Error = ""
	return nil
}

// Complete stores the merged notes and marks the summary completed.
func (s *Summary) Complete(notes transcript.StructuredSummary) error {
	if !canTransition(s.Status, StatusCompleted) {
		return ErrInvalidTransition
	}
	s.Notes = notes
	s.Status = StatusCompleted
	s.CompletedAt = time.Now().UTC()
	return nil
}

// Fail marks the summary failed with an error message.
func (s *Summary) Fail(msg string) {
	s.Status = StatusFailed
	s.Error = msg
}

// Clone creates a deep copy of the summary for safe reads.
func (s *Summary) Clone() *Summary {
	c := *s
	c.Notes = s.Notes.Clone()
	return &c
}
