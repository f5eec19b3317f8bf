package search

import "log"

// Service tries Meilisearch first and falls back to Postgres FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates the facade. meili may be nil when not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search runs one corpus query.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexRecord pushes one record into the index (fire-and-forget).
func (s *Service) IndexRecord(doc RecordDoc) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexRecord(doc); err != nil {
			log.Printf("search: index record %s: %v", doc.ID, err)
		}
	}()
}

// IndexRecords bulk-indexes the whole corpus, used on startup.
func (s *Service) IndexRecords(docs []RecordDoc) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexRecords(docs); err != nil {
			log.Printf("search: bulk index %d records: %v", len(docs), err)
		}
	}()
}

// DeleteRecord removes one record from the index (fire-and-forget).
func (s *Service) DeleteRecord(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteRecord(id); err != nil {
			log.Printf("search: delete record %s: %v", id, err)
		}
	}()
}

// Reset clears the index after a bulk reset (fire-and-forget).
func (s *Service) Reset() {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteAllRecords(); err != nil {
			log.Printf("search: reset index: %v", err)
		}
	}()
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
