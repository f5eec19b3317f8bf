package projection

import (
	"sort"

	"orbit/api/internal/store"
)

// DefaultCategory is substituted for a missing category before any
// comparison or counting.
const DefaultCategory = "Uncategorized"

// AllCategory is the synthetic entry counting the whole collection.
const AllCategory = "All"

func normalizeCategory(category string) string {
	if category == "" {
		return DefaultCategory
	}
	return category
}

// Filter returns the records visible under the active category predicate,
// preserving input order. An empty active category means no filter. Matching
// is exact and case-sensitive.
func Filter(records []store.KnowledgeRecord, activeCategory string) []store.KnowledgeRecord {
	if activeCategory == "" {
		out := make([]store.KnowledgeRecord, len(records))
		copy(out, records)
		return out
	}
	out := make([]store.KnowledgeRecord, 0, len(records))
	for _, rec := range records {
		if normalizeCategory(rec.Category) == activeCategory {
			out = append(out, rec)
		}
	}
	return out
}

// CategoryCounts tallies the unfiltered collection. The synthetic "All"
// entry comes first; the rest are sorted by name ascending for stable
// display.
func CategoryCounts(records []store.KnowledgeRecord) []CategoryCount {
	tally := make(map[string]int)
	for _, rec := range records {
		tally[normalizeCategory(rec.Category)]++
	}

	names := make([]string, 0, len(tally))
	for name := range tally {
		names = append(names, name)
	}
	sort.Strings(names)

	counts := make([]CategoryCount, 0, len(names)+1)
	counts = append(counts, CategoryCount{Name: AllCategory, Count: len(records)})
	for _, name := range names {
		counts = append(counts, CategoryCount{Name: name, Count: tally[name]})
	}
	return counts
}
