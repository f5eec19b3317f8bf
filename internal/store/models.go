package store

import "time"

// KeyPlayer is one named actor inside a captured record. Role may be empty
// when the analysis returned a bare name.
type KeyPlayer struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// KnowledgeRecord is one captured term in the knowledge_base collection.
// Records are append-only: created by a capture, never updated in place,
// removed only by explicit delete or bulk reset.
type KnowledgeRecord struct {
	ID          string      `json:"id"`
	Word        string      `json:"word"`
	Category    string      `json:"category"`
	Summary     string      `json:"summary"`
	Analogy     string      `json:"analogy,omitempty"`
	KeyPlayers  []KeyPlayer `json:"keyPlayers,omitempty"`
	Connections []string    `json:"connections,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Memo is one entry in the memos scratchpad collection.
type Memo struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
