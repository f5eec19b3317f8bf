package ai

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"orbit/api/internal/store"
)

// inferenceWindow bounds how many prior records are offered as connection
// candidates. Cost control: the candidate list rides in every prompt.
const inferenceWindow = 30

const inferencePrompt = `A new term %q was just added to a knowledge base.

Existing terms:
%s
Which of the existing terms are directly related to %q? Respond with ONLY a JSON array of the related existing term names, exactly as written above. Respond with [] if none relate. No prose, no markdown fences.`

// InferConnections asks the reasoning service which prior records relate to
// newTerm and resolves the returned names back to record identifiers.
//
// Best effort throughout: an empty prior list short-circuits without a
// network call, and a service or parse failure yields no connections rather
// than an error. Resolution is exact-match, case-insensitive; unmatched
// names are dropped silently. The result is deduplicated and unordered.
func InferConnections(ctx context.Context, svc Completer, newTerm string, prior []store.KnowledgeRecord) []string {
	if len(prior) == 0 {
		return nil
	}

	candidates := make([]store.KnowledgeRecord, len(prior))
	copy(candidates, prior)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	if len(candidates) > inferenceWindow {
		candidates = candidates[:inferenceWindow]
	}

	byName := make(map[string]string, len(candidates))
	var names strings.Builder
	for _, rec := range candidates {
		key := strings.ToLower(rec.Word)
		if _, seen := byName[key]; !seen {
			byName[key] = rec.ID
		}
		fmt.Fprintf(&names, "- %s\n", rec.Word)
	}

	text, err := svc.Complete(ctx, fmt.Sprintf(inferencePrompt, newTerm, names.String(), newTerm))
	if err != nil {
		log.Printf("ai: connection inference for %q failed: %v", newTerm, err)
		return nil
	}

	matches, err := DecodeNameList(text)
	if err != nil {
		log.Printf("ai: connection inference for %q returned unparseable list: %v", newTerm, err)
		return nil
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, name := range matches {
		id, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
