package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchDecodesItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "kubernetes" {
			t.Fatalf("query not forwarded: %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("key") == "" || r.URL.Query().Get("cx") == "" {
			t.Fatal("credentials missing from request")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{
				{"title": "Kubernetes", "snippet": "Container orchestration.", "link": "https://kubernetes.io"},
			},
		})
	}))
	defer server.Close()

	c := NewClient("key", "cx", WithBaseURL(server.URL))
	results, err := c.Search(context.Background(), "kubernetes")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Kubernetes" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient("key", "cx", WithBaseURL(server.URL))
	if _, err := c.Search(context.Background(), "kubernetes"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestSearchUnconfigured(t *testing.T) {
	c := NewClient("", "")
	if c.Configured() {
		t.Fatal("missing credentials must report unconfigured")
	}
	if _, err := c.Search(context.Background(), "kubernetes"); err == nil {
		t.Fatal("unconfigured client must fail fast")
	}
}

func TestContextBlock(t *testing.T) {
	results := []Result{
		{Title: "A", Snippet: "first"},
		{Title: "B", Snippet: "second"},
		{Title: "C", Snippet: "third"},
	}

	block := ContextBlock(results, 2)
	want := "- A: first\n- B: second\n"
	if block != want {
		t.Fatalf("got %q want %q", block, want)
	}

	if got := ContextBlock(results, 10); got != "- A: first\n- B: second\n- C: third\n" {
		t.Fatalf("limit beyond length must clamp, got %q", got)
	}
	if got := ContextBlock(nil, 3); got != "" {
		t.Fatalf("empty results must render empty, got %q", got)
	}
}
