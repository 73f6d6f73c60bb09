package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mfierros/routina/internal/metrics"
	"github.com/mfierros/routina/internal/websearch"
)

// bingResponse covers the slice of the provider payload we map into the
// simplified result list.
type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name       string `json:"name"`
			URL        string `json:"url"`
			Snippet    string `json:"snippet"`
			DisplayURL string `json:"displayUrl"`
		} `json:"value"`
	} `json:"webPages"`
}

// searchPayload is the endpoint's success shape: a simplified ranked list
// plus the untouched provider payload for callers that want more.
type searchPayload struct {
	Results []websearch.Result `json:"results"`
	Raw     json.RawMessage    `json:"raw"`
}

// handleSearch performs one web search against the upstream provider and
// returns a simplified result list alongside the raw payload.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	setCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing query parameter q"})
		return
	}

	if s.cfg.SearchAPIKey == "" {
		s.logger.Error("search forwarding requested without an API key configured")
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "search API key not configured"})
		return
	}

	endpoint := fmt.Sprintf("%s?q=%s&count=%d", s.cfg.SearchUpstream, url.QueryEscape(query), websearch.MaxResults)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not build upstream request"})
		return
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.cfg.SearchAPIKey)

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.collector.Record(metrics.OpProxySearch, time.Since(start), true)
		s.logger.Error("search upstream request failed", "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "upstream request failed", Detail: err.Error()})
		return
	}
	defer resp.Body.Close()
	s.collector.Record(metrics.OpProxySearch, time.Since(start), resp.StatusCode >= 400)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "could not read upstream response", Detail: err.Error()})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("search upstream returned error", "status", resp.StatusCode)
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "upstream search failed", Body: string(raw)})
		return
	}

	var parsed bingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "could not decode upstream response", Detail: err.Error()})
		return
	}

	results := make([]websearch.Result, 0, len(parsed.WebPages.Value))
	for i, page := range parsed.WebPages.Value {
		if i >= websearch.MaxResults {
			break
		}
		display := page.DisplayURL
		if display == "" {
			display = page.URL
		}
		results = append(results, websearch.Result{
			Rank:       i + 1,
			Name:       page.Name,
			Snippet:    page.Snippet,
			URL:        page.URL,
			DisplayURL: display,
		})
	}

	s.writeJSON(w, http.StatusOK, searchPayload{Results: results, Raw: raw})
}
