package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetnotes/meeting-notes-api/internal/transcript"
)

func TestEmailClient_SendSummary(t *testing.T) {
	var captured emailRequest
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/emails", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "msg_123"}`))
	}))
	defer srv.Close()

	client := NewEmailClient("test-key", "Notes <notes@example.com>",
		WithEmailBaseURL(srv.URL),
	)

	notes := transcript.StructuredSummary{Summary: []string{"a point"}}
	id, err := client.SendSummary(context.Background(), "alex@example.com", "", "standup.mp3", notes)
	require.NoError(t, err)

	assert.Equal(t, "msg_123", id)
	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "Notes <notes@example.com>", captured.From)
	assert.Equal(t, []string{"alex@example.com"}, captured.To)
	// Default subject includes the original filename.
	assert.Equal(t, "Meeting Notes: standup.mp3", captured.Subject)
	assert.Contains(t, captured.Text, "a point")
	assert.Contains(t, captured.HTML, "<li>a point</li>")
}

func TestEmailClient_SendSummary_CustomSubject(t *testing.T) {
	var captured emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"id": "msg_123"}`))
	}))
	defer srv.Close()

	client := NewEmailClient("test-key", "notes@example.com", WithEmailBaseURL(srv.URL))

	_, err := client.SendSummary(context.Background(), "alex@example.com", "Custom subject", "f.mp3", transcript.StructuredSummary{})
	require.NoError(t, err)
	assert.Equal(t, "Custom subject", captured.Subject)
}

func TestEmailClient_SendSummary_NotConfigured(t *testing.T) {
	client := NewEmailClient("", "notes@example.com")

	_, err := client.SendSummary(context.Background(), "alex@example.com", "", "f.mp3", transcript.StructuredSummary{})
	assert.ErrorIs(t, err, ErrEmailNotConfigured)
}

func TestEmailClient_SendSummary_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "invalid to address"}`))
	}))
	defer srv.Close()

	client := NewEmailClient("test-key", "notes@example.com", WithEmailBaseURL(srv.URL))

	_, err := client.SendSummary(context.Background(), "not-an-email", "", "f.mp3", transcript.StructuredSummary{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmailRejected)
	assert.Contains(t, err.Error(), "422")
}

func TestEmailClient_Configured(t *testing.T) {
	assert.True(t, NewEmailClient("key", "from").Configured())
	assert.False(t, NewEmailClient("", "from").Configured())
}
