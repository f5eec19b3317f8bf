package projection

import (
	"math"
	"math/rand"
)

// placementRadius bounds the random initial position of a new node. Placing
// new nodes near the origin keeps the physics layout from re-stabilizing the
// whole graph and stops nodes flying in from off-screen.
const placementRadius = 250.0

// Reconcile computes the minimal operations that bring a rendered entity set
// in line with a freshly extracted target set.
//
// Entities are diffed: an entity already rendered is never touched, which is
// what preserves its layout position and any in-progress drag. Edges are not
// diffed: every target edge is re-ensured and the view's idempotent insert
// swallows duplicates.
func Reconcile(currentIDs map[string]struct{}, targetEntities []VisualEntity, targetEdges []RelationshipEdge) Diff {
	targetIDs := make(map[string]struct{}, len(targetEntities))
	for _, e := range targetEntities {
		targetIDs[e.ID] = struct{}{}
	}

	diff := Diff{
		ToRemove:      make(map[string]struct{}),
		EdgesToEnsure: targetEdges,
	}
	for _, e := range targetEntities {
		if _, ok := currentIDs[e.ID]; ok {
			continue
		}
		e.X, e.Y = randomPlacement()
		diff.ToAdd = append(diff.ToAdd, e)
	}
	for id := range currentIDs {
		if _, ok := targetIDs[id]; !ok {
			diff.ToRemove[id] = struct{}{}
		}
	}
	return diff
}

func randomPlacement() (float64, float64) {
	angle := rand.Float64() * 2 * math.Pi
	radius := rand.Float64() * placementRadius
	return radius * math.Cos(angle), radius * math.Sin(angle)
}
