package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole service is
// down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search ranks records with plainto_tsquery over word/summary/analogy and
// snippets with ts_headline.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	const vector = `to_tsvector('english', word || ' ' || summary || ' ' || coalesce(analogy, ''))`
	where := vector + ` @@ plainto_tsquery('english', $1)`
	args := []any{q.Text}
	if q.FilterCategory != "" {
		where += " AND category = $2"
		args = append(args, q.FilterCategory)
	}

	countQuery := `SELECT COUNT(*) FROM knowledge_base WHERE ` + where
	var total int
	if err := p.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, word, category,
			ts_headline('english', summary, plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet
		FROM knowledge_base
		WHERE %s
		ORDER BY ts_rank(%s, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d`, where, vector, limit, offset)

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Word, &r.Category, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgfts iterate: %w", err)
	}
	return results, total, nil
}
