// Package ai wraps the external reasoning service: structured term analysis,
// relationship inference, chat answers and deep-dive generation.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"

	// Upstream hangs otherwise pin a capture forever; the client enforces a
	// hard ceiling even though callers may pass tighter contexts.
	requestTimeout = 60 * time.Second
)

// Completer is the prompt-in/text-out surface the rest of the service
// depends on. Tests substitute a scripted fake.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client calls the generateContent endpoint of the reasoning service.
// Credentials may be swapped at runtime through SetCredentials.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu     sync.RWMutex
	model  string
	apiKey string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a client. An empty apiKey yields an unconfigured client:
// Configured reports false and Complete fails fast, leaving the rest of the
// service usable.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		apiKey:     apiKey,
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
	return c.apiKey != ""
}

// SetCredentials replaces the API key and, when model is non-empty, the
// model. An empty apiKey disables the client until a key is set again.
func (c *Client) SetCredentials(apiKey, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
	if model != "" {
		c.model = model
	}
}

func (c *Client) credentials() (apiKey, model string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey, c.model
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one prompt and returns the first candidate's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	apiKey, model := c.credentials()
	if apiKey == "" {
		return "", fmt.Errorf("ai: api key not configured")
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: call service: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("ai: decode response (status %d): %w", res.StatusCode, err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("ai: service error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: unexpected status %d", res.StatusCode)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("ai: empty response")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
