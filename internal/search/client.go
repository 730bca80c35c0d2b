// Package search provides the news search tool backed by the scraper service.
//
// The scraper aggregates local newspaper scrapers and global news APIs
// behind a single search endpoint. Results are classified into tiers:
// "deep" sources carry full extracted article content, "api" sources
// carry snippets only.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/errors"
	"github.com/jmcortes/newswire/internal/logging"
)

// Result tiers.
const (
	TierDeep    = "deep"
	TierAPI     = "api"
	TierUnknown = "unknown"
)

// Result is a single classified search hit.
type Result struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Source        string `json:"source"`
	URL           string `json:"url"`
	Date          string `json:"date,omitempty"`
	Tier          string `json:"tier"`
	ContentLength int    `json:"content_length"`
	Method        string `json:"extraction_method,omitempty"`
}

// Response is the classified result set for one query.
type Response struct {
	Query        string   `json:"query"`
	TotalResults int      `json:"total_results"`
	DeepCount    int      `json:"deep_sources_count"`
	APICount     int      `json:"api_sources_count"`
	Results      []Result `json:"results"`
	Elapsed      time.Duration `json:"-"`
}

// JSON renders the response for inclusion in a stage prompt.
func (r *Response) JSON() string {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"query":%q,"total_results":0,"results":[]}`, r.Query)
	}
	return string(raw)
}

// Client is the interface stages use to search for news.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) (*Response, error)
}

// HTTPClient implements Client against the scraper service.
type HTTPClient struct {
	baseURL     string
	maxResults  int
	deepSources []string
	apiSources  []string
	http        *http.Client
	logger      *logging.Logger
}

// NewHTTPClient creates a search client from configuration.
func NewHTTPClient(cfg config.SearchConfig, logger *logging.Logger) *HTTPClient {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &HTTPClient{
		baseURL:     cfg.BaseURL,
		maxResults:  cfg.MaxResults,
		deepSources: cfg.DeepSources,
		apiSources:  cfg.APISources,
		http: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: logger.WithComponent("search"),
	}
}

// rawResult mirrors one hit of the scraper's wire format.
type rawResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
	URL     string `json:"url"`
	Date    string `json:"date"`
	Method  string `json:"method"`
}

// Search queries the scraper and classifies the results. maxResults is
// clamped to 1-20; 0 uses the configured default.
func (c *HTTPClient) Search(ctx context.Context, query string, maxResults int) (*Response, error) {
	if query == "" {
		return nil, errors.NewValidationError("query", "cannot be empty")
	}
	if maxResults == 0 {
		maxResults = c.maxResults
	}
	maxResults = min(max(maxResults, 1), 20)

	endpoint := c.baseURL + "/api/search?" + url.Values{
		"q":           {query},
		"max_results": {strconv.Itoa(maxResults)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "newswire/1.0")

	start := time.Now()
	c.logger.Info("search started", "query", query, "max_results", maxResults)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.FromContext(ctxErr)
		}
		return nil, errors.NewUpstreamError(0, "search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewUpstreamError(resp.StatusCode, "search request rejected", nil)
	}

	var decoded struct {
		Results []rawResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.NewUpstreamError(resp.StatusCode, "decode search response", err)
	}
	if decoded.Results == nil {
		return nil, errors.NewUpstreamError(resp.StatusCode, "search response missing results", nil)
	}

	out := &Response{
		Query:   query,
		Results: make([]Result, 0, len(decoded.Results)),
		Elapsed: time.Since(start),
	}
	for i, raw := range decoded.Results {
		tier := c.classify(raw.Source)
		switch tier {
		case TierDeep:
			out.DeepCount++
		case TierAPI:
			out.APICount++
		}
		out.Results = append(out.Results, Result{
			ID:            i + 1,
			Title:         raw.Title,
			Content:       raw.Content,
			Source:        raw.Source,
			URL:           raw.URL,
			Date:          raw.Date,
			Tier:          tier,
			ContentLength: len(raw.Content),
			Method:        raw.Method,
		})
	}
	out.TotalResults = len(out.Results)

	c.logger.Info("search finished",
		"query", query,
		"total", out.TotalResults,
		"deep", out.DeepCount,
		"api", out.APICount,
		"elapsed", out.Elapsed.String())
	return out, nil
}

// classify maps a source name to its content tier.
func (c *HTTPClient) classify(source string) string {
	if slices.Contains(c.deepSources, source) {
		return TierDeep
	}
	if slices.Contains(c.apiSources, source) {
		return TierAPI
	}
	return TierUnknown
}
