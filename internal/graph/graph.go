// Package graph holds the live force-graph model the projection is applied
// to. It mirrors what a vis-style renderer keeps client-side: node positions
// survive reconciliation, and edge insertion is idempotent.
package graph

import (
	"sync"

	"orbit/api/internal/projection"
)

// Node is one rendered graph node.
type Node struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Kind  string  `json:"kind"`
	Group string  `json:"group,omitempty"`
	Title string  `json:"title,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Edge is one rendered link, keyed by its endpoint pair.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Snapshot is a copyable view of the whole graph plus the current camera
// target.
type Snapshot struct {
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
	FocusID string `json:"focusId,omitempty"`
}

// Graph implements projection.View.
type Graph struct {
	mu      sync.Mutex
	nodes   map[string]*Node
	edges   map[[2]string]Edge
	focusID string
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[[2]string]Edge),
	}
}

// Apply reconciles the graph with one diff. Existing nodes are never
// recreated, so their position (and any in-flight drag client-side) is
// preserved. Removing a node cascades to its edges. Duplicate edge ensures
// are ignored, as are edges whose endpoints are not present.
func (g *Graph) Apply(diff projection.Diff) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id := range diff.ToRemove {
		delete(g.nodes, id)
		for key := range g.edges {
			if key[0] == id || key[1] == id {
				delete(g.edges, key)
			}
		}
		if g.focusID == id {
			g.focusID = ""
		}
	}

	for _, e := range diff.ToAdd {
		if _, exists := g.nodes[e.ID]; exists {
			continue
		}
		g.nodes[e.ID] = &Node{
			ID:    e.ID,
			Label: e.Label,
			Kind:  string(e.Kind),
			Group: e.GroupTag,
			Title: e.Detail,
			X:     e.X,
			Y:     e.Y,
		}
	}

	for _, edge := range diff.EdgesToEnsure {
		if _, ok := g.nodes[edge.From]; !ok {
			continue
		}
		if _, ok := g.nodes[edge.To]; !ok {
			continue
		}
		key := [2]string{edge.From, edge.To}
		if _, exists := g.edges[key]; exists {
			continue
		}
		g.edges[key] = Edge{From: edge.From, To: edge.To}
	}
}

// Focus records the camera target.
func (g *Graph) Focus(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; ok {
		g.focusID = id
	}
}

// SetPosition stores a client-reported node position so later diffs do not
// reset user layout.
func (g *Graph) SetPosition(id string, x, y float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	node, ok := g.nodes[id]
	if !ok {
		return false
	}
	node.X = x
	node.Y = y
	return true
}

// NodeIDs returns the currently rendered identifier set.
func (g *Graph) NodeIDs() map[string]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make(map[string]struct{}, len(g.nodes))
	for id := range g.nodes {
		ids[id] = struct{}{}
	}
	return ids
}

// Snapshot copies the full graph for the read API.
func (g *Graph) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		Nodes:   make([]Node, 0, len(g.nodes)),
		Edges:   make([]Edge, 0, len(g.edges)),
		FocusID: g.focusID,
	}
	for _, node := range g.nodes {
		snap.Nodes = append(snap.Nodes, *node)
	}
	for _, edge := range g.edges {
		snap.Edges = append(snap.Edges, edge)
	}
	return snap
}
