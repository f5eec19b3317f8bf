package projection

import (
	"math"
	"testing"

	"orbit/api/internal/store"
)

func TestReconcileAddsOnlyNewEntities(t *testing.T) {
	current := map[string]struct{}{"kb_1": {}}
	target := []VisualEntity{
		{ID: "kb_1", Kind: KindPrimary},
		{ID: "kb_2", Kind: KindPrimary},
	}

	diff := Reconcile(current, target, nil)

	if len(diff.ToAdd) != 1 || diff.ToAdd[0].ID != "kb_2" {
		t.Fatalf("expected only kb_2 added, got %+v", diff.ToAdd)
	}
	if len(diff.ToRemove) != 0 {
		t.Fatalf("expected no removals, got %+v", diff.ToRemove)
	}
}

func TestReconcileRemovesMissingEntities(t *testing.T) {
	current := map[string]struct{}{"kb_1": {}, "kb_1_p_0": {}}

	diff := Reconcile(current, nil, nil)

	if len(diff.ToRemove) != 2 {
		t.Fatalf("expected both entities removed, got %+v", diff.ToRemove)
	}
	if len(diff.ToAdd) != 0 {
		t.Fatalf("expected no additions, got %+v", diff.ToAdd)
	}
}

func TestReconcileRepeatExtractionIsEmpty(t *testing.T) {
	records := []store.KnowledgeRecord{
		{ID: "kb_1", Word: "Ansible", KeyPlayers: []store.KeyPlayer{{Name: "Red Hat"}}},
	}
	byID := indexByID(records)
	entities, edges := Extract(records, byID)

	current := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		current[e.ID] = struct{}{}
	}

	diff := Reconcile(current, entities, edges)

	if !diff.Empty() {
		t.Fatalf("re-projecting an unchanged collection must be an entity no-op, got add=%+v remove=%+v", diff.ToAdd, diff.ToRemove)
	}
	// Edges are always re-ensured; the view dedupes.
	if len(diff.EdgesToEnsure) != len(edges) {
		t.Fatalf("expected %d edges re-ensured, got %d", len(edges), len(diff.EdgesToEnsure))
	}
}

func TestReconcilePlacesNewEntitiesWithinRadius(t *testing.T) {
	diff := Reconcile(nil, []VisualEntity{{ID: "kb_1"}}, nil)

	if len(diff.ToAdd) != 1 {
		t.Fatalf("expected one addition, got %+v", diff.ToAdd)
	}
	e := diff.ToAdd[0]
	if dist := math.Hypot(e.X, e.Y); dist > placementRadius {
		t.Fatalf("placement %f exceeds radius %f", dist, placementRadius)
	}
}
