// Package projection maintains the visual graph and the filtered card feed as
// an incrementally-updated projection of the knowledge_base collection.
package projection

import "orbit/api/internal/store"

type EntityKind string

const (
	// KindPrimary is a node backed by one captured record.
	KindPrimary EntityKind = "primary"
	// KindDerived is a sub-node generated from a record's key players.
	KindDerived EntityKind = "derived"
)

// Group tags are rendering hints only; nothing downstream branches on them.
const (
	GroupCore   = "core"
	GroupPlayer = "ai"
)

// VisualEntity is one renderable node. A primary entity's ID equals its
// source record's ID; a derived entity's ID is composed deterministically
// from (recordID, kind, index) so repeated extraction is recognized as
// "already present" instead of duplicating nodes.
type VisualEntity struct {
	ID       string     `json:"id"`
	Kind     EntityKind `json:"kind"`
	Label    string     `json:"label"`
	Detail   string     `json:"detail,omitempty"`
	GroupTag string     `json:"group,omitempty"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
}

// RelationshipEdge links two entities: primary→derived for key players,
// primary→primary for inferred connections.
type RelationshipEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Diff is the minimal reconciliation between the rendered entity set and a
// freshly extracted target set. Entities are diffed so untouched nodes keep
// their layout position; edges are always re-ensured and deduplicated by the
// view's idempotent insert.
type Diff struct {
	ToAdd         []VisualEntity
	ToRemove      map[string]struct{}
	EdgesToEnsure []RelationshipEdge
}

// Empty reports whether applying the diff would change the entity set.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// CategoryCount is one entry of the category bar, including the synthetic
// "All" entry.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Snapshot is an immutable copy of the controller's state handed to readers.
type Snapshot struct {
	Records        []store.KnowledgeRecord // filtered, store order (newest first)
	AllRecords     []store.KnowledgeRecord
	ActiveCategory string
	Counts         []CategoryCount
	RenderedIDs    map[string]struct{}
	State          State
}
