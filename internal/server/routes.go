package server

import (
	"log/slog"
	"net/http"
)

// RouterConfig contains router-level options.
type RouterConfig struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultRouterConfig returns a RouterConfig with default values.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /upload", h.Upload)
	mux.HandleFunc("GET /files/{id}", h.GetFile)

	mux.HandleFunc("POST /transcribe/{id}", h.StartTranscription)
	mux.HandleFunc("GET /transcribe/{id}/status", h.TranscriptionStatus)
	mux.HandleFunc("GET /transcriptions", h.ListTranscriptions)

	mux.HandleFunc("POST /summarize/{id}", h.StartSummarization)
	mux.HandleFunc("GET /summarize/{id}/status", h.SummaryStatus)
	mux.HandleFunc("GET /summaries", h.ListSummaries)

	mux.HandleFunc("POST /notify/{id}/email", h.NotifyEmail)
	mux.HandleFunc("POST /notify/{id}/slack", h.NotifySlack)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
