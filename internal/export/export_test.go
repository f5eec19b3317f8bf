package export

import (
	"strings"
	"testing"
	"time"

	"orbit/api/internal/store"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Kubernetes v1.2", "Kubernetes-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "card"},
		{"snake_case-kept", "snake_case-kept"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := percentEncodeForDataURL(tt.input); got != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCardTemplateRendersRecord(t *testing.T) {
	data := cardData{
		Word:        "Kubernetes",
		Category:    "DevOps",
		Summary:     "Container orchestration.",
		Analogy:     "An air traffic controller for containers.",
		KeyPlayers:  []store.KeyPlayer{{Name: "Google", Role: "originator"}},
		Connections: []string{"Docker"},
		Captured:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
	}

	var html strings.Builder
	if err := cardTemplate.Execute(&html, data); err != nil {
		t.Fatalf("template execute failed: %v", err)
	}
	out := html.String()

	for _, want := range []string{"Kubernetes", "DevOps", "Container orchestration.", "air traffic controller", "Google", "(originator)", "Docker", "2026-03-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered card missing %q", want)
		}
	}
}

func TestCardTemplateOmitsEmptySections(t *testing.T) {
	var html strings.Builder
	if err := cardTemplate.Execute(&html, cardData{Word: "Bare", Summary: "Minimal."}); err != nil {
		t.Fatalf("template execute failed: %v", err)
	}
	out := html.String()

	for _, absent := range []string{"Key players", "Connected concepts", `<div class="analogy">`} {
		if strings.Contains(out, absent) {
			t.Errorf("empty section %q must not render", absent)
		}
	}
}
