// Package websearch fetches external search results through the search
// forwarder and formats them as conversation context.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxResults caps how many results a search contributes.
const MaxResults = 5

// Result is one ranked search hit. Ephemeral: consumed to build a note,
// then discarded.
type Result struct {
	Rank       int    `json:"id"`
	Name       string `json:"name"`
	Snippet    string `json:"snippet"`
	URL        string `json:"url"`
	DisplayURL string `json:"displayUrl"`
}

// searchResponse is the forwarder's success payload. The raw upstream
// payload rides along but is ignored here.
type searchResponse struct {
	Results []Result        `json:"results"`
	Raw     json.RawMessage `json:"raw"`
}

// Client queries the search forwarding endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a search client. An empty baseURL disables search:
// every call returns nil results.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger,
	}
}

// Enabled reports whether a search endpoint is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Search performs one search. Unavailability (no endpoint configured, a
// transport failure, a non-success status, an unreadable body) is never an
// error to the caller: it is logged and collapses to nil results.
func (c *Client) Search(ctx context.Context, query string) []Result {
	if !c.Enabled() {
		return nil
	}

	endpoint := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn("web search failed", "error", err)
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("web search failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("search endpoint returned non-success status", "status", resp.StatusCode)
		return nil
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Warn("could not decode search response", "error", err)
		return nil
	}

	results := payload.Results
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	for i := range results {
		if results[i].DisplayURL == "" {
			results[i].DisplayURL = results[i].URL
		}
	}
	return results
}

// formatList renders results as the numbered citation list.
func formatList(results []Result) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%d. %s - %s (%s)", r.Rank, r.Name, r.Snippet, r.URL))
	}
	return strings.Join(lines, "\n")
}

// QueryNote builds the system-message content injected after searching for
// a user query. Callers must not inject a note for zero results.
func QueryNote(query string, results []Result) string {
	return fmt.Sprintf("Web search results for: %q\n\n%s\n\nPlease use these results where helpful and cite sources by number.",
		query, formatList(results))
}

// ProductsNote builds the system-message content injected after searching
// for the selected products.
func ProductsNote(results []Result) string {
	return fmt.Sprintf("Web search results for selected products:\n\n%s\n\nPlease use these results where helpful and cite sources by number.",
		formatList(results))
}
