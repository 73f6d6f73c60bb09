// Package proxy implements the forwarding server that fronts the upstream
// chat-completions and web-search providers. Clients never hold provider
// credentials; both API keys live only in this process and are attached
// here, on the way out.
package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mfierros/routina/internal/metrics"
)

// Default upstream endpoints.
const (
	DefaultChatUpstream   = "https://api.openai.com/v1/chat/completions"
	DefaultSearchUpstream = "https://api.bing.microsoft.com/v7.0/search"
)

// Config holds the forwarding server's settings. A missing key disables
// the corresponding endpoint at request time with a server error, not at
// startup: one configured provider is a valid deployment.
type Config struct {
	ChatAPIKey     string
	SearchAPIKey   string
	ChatUpstream   string
	SearchUpstream string
}

// Server holds the forwarding handlers and their shared dependencies.
type Server struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	collector  *metrics.Collector
}

// New creates a forwarding server.
func New(cfg Config, logger *slog.Logger, collector *metrics.Collector) *Server {
	if cfg.ChatUpstream == "" {
		cfg.ChatUpstream = DefaultChatUpstream
	}
	if cfg.SearchUpstream == "" {
		cfg.SearchUpstream = DefaultSearchUpstream
	}
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Server{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
		collector:  collector,
	}
}

// RegisterRoutes attaches the forwarding endpoints and the health check to
// mux. Unregistered paths fall through to the mux's 404.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/v1/chat/completions", s.wrap(s.handleChat))
	mux.Handle("/search", s.wrap(s.handleSearch))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("/stats", s.wrap(s.handleStats))
}

// handleStats reports the collector's counters and timings as JSON.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

// Handler returns the full routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// wrap applies the shared middleware chain to a handler.
func (s *Server) wrap(h http.HandlerFunc) http.Handler {
	return RequestID(Recovery(s.logger, Logging(s.logger, h)))
}

// setCORS writes the permissive CORS headers both endpoints carry on every
// response, preflight included.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// errorBody is the JSON error envelope both endpoints use.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Body   string `json:"body,omitempty"`
}
