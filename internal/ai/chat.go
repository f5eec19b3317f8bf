package ai

import (
	"context"
	"fmt"
	"strings"

	"orbit/api/internal/store"
)

// chatWindow bounds how many recent records ride along as chat context.
const chatWindow = 20

const chatPrompt = `You are the assistant of a personal knowledge base. Answer the question using the captured items below as your primary context. If they are not relevant, say so briefly and answer from general knowledge.

Captured items (newest first):
%s
Question: %s`

// AnswerQuestion answers a chat question with the most recently captured
// records as context.
func AnswerQuestion(ctx context.Context, svc Completer, question string, recent []store.KnowledgeRecord) (string, error) {
	if len(recent) > chatWindow {
		recent = recent[:chatWindow]
	}
	var items strings.Builder
	if len(recent) == 0 {
		items.WriteString("(nothing captured yet)\n")
	}
	for _, rec := range recent {
		fmt.Fprintf(&items, "- %s [%s]: %s\n", rec.Word, rec.Category, rec.Summary)
	}

	answer, err := svc.Complete(ctx, fmt.Sprintf(chatPrompt, items.String(), question))
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

const deepDivePrompt = `Write a deeper briefing (4-6 paragraphs, plain text) on the topic below for a reader who already has the short summary.

Topic: %s
Category: %s
Known summary: %s`

// DeepDive generates the long-form briefing for a selected record. Only
// fired on explicit user request, never on plain selection.
func DeepDive(ctx context.Context, svc Completer, rec store.KnowledgeRecord) (string, error) {
	text, err := svc.Complete(ctx, fmt.Sprintf(deepDivePrompt, rec.Word, rec.Category, rec.Summary))
	if err != nil {
		return "", fmt.Errorf("deep dive %q: %w", rec.Word, err)
	}
	return strings.TrimSpace(text), nil
}
