package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mfierros/routina/internal/metrics"
)

// handleChat forwards a chat-completions request body to the upstream
// provider, attaching the API key. The upstream response, success or
// provider error alike, passes through verbatim so the client sees exactly
// what the provider said.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	setCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "could not read request body"})
		return
	}
	if !json.Valid(body) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "request body must be valid JSON"})
		return
	}

	if s.cfg.ChatAPIKey == "" {
		s.logger.Error("chat forwarding requested without an API key configured")
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "chat API key not configured"})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.cfg.ChatUpstream, bytes.NewReader(body))
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not build upstream request"})
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.ChatAPIKey)

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.collector.Record(metrics.OpProxyChat, time.Since(start), true)
		s.logger.Error("chat upstream request failed", "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "upstream request failed", Detail: err.Error()})
		return
	}
	defer resp.Body.Close()
	s.collector.Record(metrics.OpProxyChat, time.Since(start), resp.StatusCode >= 400)

	upstream, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Error("could not read chat upstream response", "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "could not read upstream response", Detail: err.Error()})
		return
	}

	// Verbatim passthrough: status and body exactly as the provider sent
	// them, so client-side error handling sees real provider payloads.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(upstream)
}
