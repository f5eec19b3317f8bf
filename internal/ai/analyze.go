package ai

import (
	"context"
	"fmt"
	"strings"
)

const analysisPrompt = `You are a knowledge analyst. Analyze the term below and respond with ONLY a JSON object, no prose, no markdown fences.

Term: %q
%s
Required JSON shape:
{
  "word": "the term",
  "category": "one short category label, e.g. DevOps, Cloud, Finance",
  "summary": "2-4 sentence plain-language definition",
  "analogy": "one everyday analogy",
  "key_players": [{"name": "who or what", "role": "their role"}],
  "related_terms": ["adjacent concept", "..."]
}`

// Analyze asks the reasoning service for a structured summary of term.
// searchContext, when non-empty, is appended to ground the answer in fresh
// web snippets. A malformed response is an error: the capture must not write
// a defaulted record.
func Analyze(ctx context.Context, svc Completer, term, searchContext string) (Analysis, error) {
	contextBlock := ""
	if strings.TrimSpace(searchContext) != "" {
		contextBlock = "Context from a web search:\n" + searchContext + "\n"
	}

	text, err := svc.Complete(ctx, fmt.Sprintf(analysisPrompt, term, contextBlock))
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze %q: %w", term, err)
	}

	analysis, err := DecodeAnalysis(text)
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze %q: %w", term, err)
	}
	if strings.TrimSpace(analysis.Word) == "" {
		analysis.Word = term
	}
	if strings.TrimSpace(analysis.Category) == "" {
		analysis.Category = "Uncategorized"
	}
	return analysis, nil
}
