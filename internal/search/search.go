package search

// Result is a single search hit over the captured corpus.
type Result struct {
	ID       string `json:"id"`
	Word     string `json:"word"`
	Category string `json:"category"`
	Snippet  string `json:"snippet"`
}

// Query describes a corpus search request.
type Query struct {
	Text           string
	FilterCategory string // empty = all categories
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// RecordDoc is the data indexed per captured record.
type RecordDoc struct {
	ID       string `json:"id"`
	Word     string `json:"word"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
	Analogy  string `json:"analogy,omitempty"`
}
