package projection

import (
	"reflect"
	"testing"

	"orbit/api/internal/store"
)

func TestFilterEmptyCategoryReturnsEverything(t *testing.T) {
	records := []store.KnowledgeRecord{
		{ID: "kb_1", Category: "DevOps"},
		{ID: "kb_2", Category: "Cloud"},
	}

	out := Filter(records, "")

	if len(out) != 2 {
		t.Fatalf("expected all records, got %d", len(out))
	}
	if out[0].ID != "kb_1" || out[1].ID != "kb_2" {
		t.Fatalf("input order not preserved: %+v", out)
	}
}

func TestFilterMatchesNormalizedCategory(t *testing.T) {
	records := []store.KnowledgeRecord{
		{ID: "kb_1", Category: "DevOps"},
		{ID: "kb_2", Category: ""},
		{ID: "kb_3", Category: "devops"},
	}

	if out := Filter(records, "DevOps"); len(out) != 1 || out[0].ID != "kb_1" {
		t.Fatalf("case-sensitive match expected only kb_1, got %+v", out)
	}
	// A record with no category is visible under the default bucket.
	if out := Filter(records, DefaultCategory); len(out) != 1 || out[0].ID != "kb_2" {
		t.Fatalf("expected kb_2 under %q, got %+v", DefaultCategory, out)
	}
}

func TestCategoryCountsAllFirstThenSorted(t *testing.T) {
	records := []store.KnowledgeRecord{
		{ID: "kb_1", Category: "DevOps"},
		{ID: "kb_2", Category: "Cloud"},
		{ID: "kb_3", Category: ""},
	}

	counts := CategoryCounts(records)

	want := []CategoryCount{
		{Name: "All", Count: 3},
		{Name: "Cloud", Count: 1},
		{Name: "DevOps", Count: 1},
		{Name: "Uncategorized", Count: 1},
	}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("counts mismatch:\n got %+v\nwant %+v", counts, want)
	}
}

func TestCategoryCountsEmptyCollection(t *testing.T) {
	counts := CategoryCounts(nil)
	if len(counts) != 1 || counts[0].Name != "All" || counts[0].Count != 0 {
		t.Fatalf("expected only the zero All entry, got %+v", counts)
	}
}
