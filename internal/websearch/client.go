// Package websearch is a thin client for the Google Custom Search API, used
// to ground term analysis in fresh snippets.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string

	mu       sync.RWMutex
	apiKey   string
	engineID string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a search client. Missing credentials leave it
// unconfigured; captures then run without search grounding.
func NewClient(apiKey, engineID string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		engineID:   engineID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != "" && c.engineID != ""
}

// SetCredentials replaces the API key and engine ID together. Clearing
// either disables search grounding until both are set again.
func (c *Client) SetCredentials(apiKey, engineID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
	c.engineID = engineID
}

// Search returns the raw result items for a query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	c.mu.RLock()
	apiKey, engineID := c.apiKey, c.engineID
	c.mu.RUnlock()
	if apiKey == "" || engineID == "" {
		return nil, fmt.Errorf("websearch: credentials not configured")
	}

	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("cx", engineID)
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: build request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: call service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: unexpected status %d", res.StatusCode)
	}

	var decoded struct {
		Items []Result `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}
	return decoded.Items, nil
}

// ContextBlock formats the top results into prompt context lines.
func ContextBlock(results []Result, limit int) string {
	if limit > len(results) {
		limit = len(results)
	}
	var b strings.Builder
	for _, item := range results[:limit] {
		fmt.Fprintf(&b, "- %s: %s\n", item.Title, item.Snippet)
	}
	return b.String()
}
