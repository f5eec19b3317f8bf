package projection

import (
	"testing"

	"orbit/api/internal/store"
)

func indexByID(records []store.KnowledgeRecord) map[string]store.KnowledgeRecord {
	byID := make(map[string]store.KnowledgeRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	return byID
}

func TestExtractDerivedIDsAreDeterministic(t *testing.T) {
	records := []store.KnowledgeRecord{
		{
			ID:   "kb_1",
			Word: "Kubernetes",
			KeyPlayers: []store.KeyPlayer{
				{Name: "Google", Role: "originator"},
				{Name: "CNCF", Role: "steward"},
			},
		},
	}
	byID := indexByID(records)

	first, _ := Extract(records, byID)
	second, _ := Extract(records, byID)

	if len(first) != 3 {
		t.Fatalf("expected 3 entities (1 primary + 2 derived), got %d", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("entity %d ID changed between extractions: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	if first[1].ID != "kb_1_p_0" || first[2].ID != "kb_1_p_1" {
		t.Fatalf("unexpected derived IDs: %q, %q", first[1].ID, first[2].ID)
	}
}

func TestExtractSkipsEmptyPlayerNamesButKeepsIndexes(t *testing.T) {
	records := []store.KnowledgeRecord{
		{
			ID:   "kb_1",
			Word: "Terraform",
			KeyPlayers: []store.KeyPlayer{
				{Name: "", Role: "unknown"},
				{Name: "HashiCorp", Role: "vendor"},
			},
		},
	}

	entities, edges := Extract(records, indexByID(records))

	if len(entities) != 2 {
		t.Fatalf("expected primary + 1 derived, got %d entities", len(entities))
	}
	// Index 1 survives even though index 0 was skipped.
	if entities[1].ID != "kb_1_p_1" {
		t.Fatalf("expected derived ID kb_1_p_1, got %q", entities[1].ID)
	}
	if len(edges) != 1 || edges[0].To != "kb_1_p_1" {
		t.Fatalf("expected a single edge to kb_1_p_1, got %+v", edges)
	}
}

func TestExtractDropsDanglingAndSelfConnections(t *testing.T) {
	records := []store.KnowledgeRecord{
		{ID: "kb_1", Word: "Docker", Connections: []string{"kb_1", "kb_2", "kb_gone"}},
		{ID: "kb_2", Word: "containerd"},
	}

	_, edges := Extract(records, indexByID(records))

	if len(edges) != 1 {
		t.Fatalf("expected exactly one connection edge, got %+v", edges)
	}
	if edges[0].From != "kb_1" || edges[0].To != "kb_2" {
		t.Fatalf("unexpected edge %+v", edges[0])
	}
}

func TestExtractOmitsEdgesToFilteredOutTargets(t *testing.T) {
	all := []store.KnowledgeRecord{
		{ID: "kb_1", Word: "EKS", Category: "Cloud", Connections: []string{"kb_2"}},
		{ID: "kb_2", Word: "Jenkins", Category: "DevOps"},
	}
	visible := Filter(all, "Cloud")

	entities, edges := Extract(visible, indexByID(visible))

	if len(entities) != 1 {
		t.Fatalf("expected only the Cloud record, got %d entities", len(entities))
	}
	if len(edges) != 0 {
		t.Fatalf("edge to a filtered-out record must not be emitted, got %+v", edges)
	}
}
