package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", WithBaseURL(server.URL), WithModel("test-model"))
}

func TestCompleteReturnsFirstCandidate(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Fatalf("unexpected prompt payload: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "world"}}}},
			},
		})
	})

	got, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if got != "world" {
		t.Fatalf("expected %q, got %q", "world", got)
	}
	if !strings.Contains(gotPath, "test-model") {
		t.Fatalf("configured model not used, path: %s", gotPath)
	}
}

func TestCompleteSurfacesServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded"},
		})
	})

	_, err := c.Complete(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected the service message to surface, got %v", err)
	}
}

func TestCompleteEmptyCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	if _, err := c.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("empty candidate list must be an error")
	}
}

func TestCompleteUnconfiguredFailsFast(t *testing.T) {
	c := NewClient("")
	if c.Configured() {
		t.Fatal("empty key must report unconfigured")
	}
	if _, err := c.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("unconfigured client must not call out")
	}
}
