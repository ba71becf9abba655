// Package search is the web search adapter exposed to the agent. Every call
// returns a models.SearchResponse; failures are reported in its Error field.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.exa.ai"
	DefaultTimeout = 10 * time.Second

	// numResults is fixed so the agent cannot widen a search to stretch its budget
	numResults = 5
)

// Client handles communication with the Exa search API
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different API host
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithTimeout overrides the per-search timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient supplies the HTTP client used for requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a new Exa client. An empty apiKey is allowed: each
// search then reports the missing key instead of failing startup.
func NewClient(apiKey string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		client:  &http.Client{},
		log:     log.With().Str("component", "search").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchRequest matches Exa's /search body. Only text contents are requested.
type searchRequest struct {
	Query          string         `json:"query"`
	Type           string         `json:"type"`
	NumResults     int            `json:"numResults"`
	Contents       searchContents `json:"contents"`
	IncludeDomains []string       `json:"includeDomains,omitempty"`
	ExcludeDomains []string       `json:"excludeDomains,omitempty"`
	Category       string         `json:"category,omitempty"`
}

type searchContents struct {
	Text bool `json:"text"`
}

type searchResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Text          string  `json:"text"`
		PublishedDate *string `json:"publishedDate"`
	} `json:"results"`
}

// Search runs one query and blocks until it completes or the timeout fires.
// On timeout the request goroutine is abandoned; cancellation of the
// underlying HTTP call is best-effort via its context.
func (c *Client) Search(ctx context.Context, req models.SearchRequest) models.SearchResponse {
	if c.apiKey == "" {
		return errorResponse("EXA_API_KEY not found in environment variables")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		results []models.SearchResult
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		results, err := c.do(ctx, req)
		done <- outcome{results: results, err: err}
	}()

	var res outcome
	select {
	case res = <-done:
	case <-ctx.Done():
		res = outcome{err: ctx.Err()}
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			c.log.Warn().Str("query", req.Query).Dur("timeout", c.timeout).Msg("Search timed out")
			return errorResponse(fmt.Sprintf("Search timeout after %g seconds", c.timeout.Seconds()))
		}
		c.log.Warn().Err(res.err).Str("query", req.Query).Msg("Search failed")
		return errorResponse(fmt.Sprintf("Search error: %v", res.err))
	}

	c.log.Debug().Str("query", req.Query).Int("results", len(res.results)).Msg("Search completed")
	return models.SearchResponse{Results: res.results}
}

// SearchAsync runs Search on its own goroutine. The channel receives exactly
// one response and is then closed.
func (c *Client) SearchAsync(ctx context.Context, req models.SearchRequest) <-chan models.SearchResponse {
	ch := make(chan models.SearchResponse, 1)
	go func() {
		defer close(ch)
		ch <- c.Search(ctx, req)
	}()
	return ch
}

func (c *Client) do(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	body := searchRequest{
		Query:          req.Query,
		Type:           "keyword",
		NumResults:     numResults,
		Contents:       searchContents{Text: true},
		IncludeDomains: req.IncludeDomains,
		ExcludeDomains: req.ExcludeDomains,
		Category:       req.Category,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/search", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call search API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		results = append(results, models.SearchResult{
			Title:         r.Title,
			URL:           r.URL,
			Text:          r.Text,
			PublishedDate: r.PublishedDate,
		})
	}
	return results, nil
}

func errorResponse(msg string) models.SearchResponse {
	return models.SearchResponse{Results: []models.SearchResult{}, Error: msg}
}
