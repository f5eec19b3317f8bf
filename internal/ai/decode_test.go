package ai

import (
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced with language tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced array", "```json\n[\"x\"]\n```", `["x"]`},
		{"leading whitespace", "  \n```json\n{}\n```  ", `{}`},
		{"fence glued to payload", "```{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripFences(tc.in); got != tc.want {
				t.Fatalf("StripFences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecodeAnalysis(t *testing.T) {
	text := "```json\n" + `{
		"word": "Kubernetes",
		"category": "DevOps",
		"summary": "Container orchestration.",
		"analogy": "An air traffic controller for containers.",
		"key_players": ["Google", {"name": "CNCF", "role": "steward"}],
		"related_terms": ["Docker"]
	}` + "\n```"

	analysis, err := DecodeAnalysis(text)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if analysis.Word != "Kubernetes" || analysis.Category != "DevOps" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if len(analysis.KeyPlayers) != 2 {
		t.Fatalf("expected 2 key players, got %+v", analysis.KeyPlayers)
	}
	// Bare string form carries no role.
	if analysis.KeyPlayers[0].Name != "Google" || analysis.KeyPlayers[0].Role != "" {
		t.Fatalf("bare-string player mis-decoded: %+v", analysis.KeyPlayers[0])
	}
	if analysis.KeyPlayers[1].Name != "CNCF" || analysis.KeyPlayers[1].Role != "steward" {
		t.Fatalf("object player mis-decoded: %+v", analysis.KeyPlayers[1])
	}
}

func TestDecodeAnalysisRejectsMissingSummary(t *testing.T) {
	if _, err := DecodeAnalysis(`{"word":"x","summary":"  "}`); err == nil {
		t.Fatal("an analysis with no summary must be rejected")
	}
}

func TestDecodeAnalysisRejectsProse(t *testing.T) {
	_, err := DecodeAnalysis("I'm sorry, I cannot answer that.")
	if err == nil {
		t.Fatal("prose must not decode")
	}
	if !strings.Contains(err.Error(), "decode analysis") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecodeNameList(t *testing.T) {
	names, err := DecodeNameList("```json\n[\"Docker\", \"AWS\"]\n```")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(names) != 2 || names[0] != "Docker" || names[1] != "AWS" {
		t.Fatalf("unexpected names: %v", names)
	}

	if _, err := DecodeNameList("none of them"); err == nil {
		t.Fatal("prose must not decode as a name list")
	}
}
