package projection

import (
	"fmt"

	"orbit/api/internal/store"
)

// DerivedID composes the stable identifier of a derived sub-entity. The
// format is a contract: repeated recomputation must yield the same ID.
func DerivedID(recordID string, index int) string {
	return fmt.Sprintf("%s_p_%d", recordID, index)
}

// Extract expands the visible records into the target entity and edge sets.
// visible is the filtered record list; byID indexes the records that are
// renderable (same as visible): a connection whose target is deleted or
// filtered out produces no edge and no error.
//
// Output IDs are deterministic: extracting the same records twice yields
// byte-identical identifiers, which is what lets Reconcile treat a repeat
// extraction as a no-op.
func Extract(visible []store.KnowledgeRecord, byID map[string]store.KnowledgeRecord) ([]VisualEntity, []RelationshipEdge) {
	entities := make([]VisualEntity, 0, len(visible))
	edges := make([]RelationshipEdge, 0, len(visible))

	for _, rec := range visible {
		entities = append(entities, VisualEntity{
			ID:       rec.ID,
			Kind:     KindPrimary,
			Label:    rec.Word,
			Detail:   rec.Summary,
			GroupTag: GroupCore,
		})

		for i, player := range rec.KeyPlayers {
			if player.Name == "" {
				continue
			}
			detail := player.Role
			entities = append(entities, VisualEntity{
				ID:       DerivedID(rec.ID, i),
				Kind:     KindDerived,
				Label:    player.Name,
				Detail:   detail,
				GroupTag: GroupPlayer,
			})
			edges = append(edges, RelationshipEdge{From: rec.ID, To: DerivedID(rec.ID, i)})
		}

		for _, target := range rec.Connections {
			if target == rec.ID {
				continue
			}
			if _, ok := byID[target]; !ok {
				continue
			}
			edges = append(edges, RelationshipEdge{From: rec.ID, To: target})
		}
	}
	return entities, edges
}
