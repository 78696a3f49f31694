package search

import (
	"context"
	"log"
	"strings"
	"sync"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	index    Indexer
	fallback Searcher
	loader   func(ctx context.Context) ([]DocumentRecord, error)
	pending  sync.WaitGroup
}

// NewService creates a search service. index may be nil if Meilisearch is not
// configured.
func NewService(index Indexer, pgfts *PgFTS) *Service {
	s := &Service{index: index}
	if pgfts != nil {
		s.fallback = pgfts
		s.loader = pgfts.LoadAllRecords
	}
	return s
}

func (s *Service) indexHealthy() bool {
	return s.index != nil && s.index.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	q = normalizeQuery(q)
	empty := Response{Results: []Result{}, Query: q.Text}
	if strings.TrimSpace(q.Text) == "" {
		return empty
	}

	if s.indexHealthy() {
		results, total, err := s.index.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "meilisearch"}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	if s.fallback == nil {
		return empty
	}
	results, total, err := s.fallback.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return empty
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: "pgfts"}
}

// IndexDocument indexes a document (fire-and-forget to Meilisearch).
func (s *Service) IndexDocument(doc DocumentRecord) {
	if !s.indexHealthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.index.IndexDocument(doc); err != nil {
			log.Printf("search: index document %s: %v", doc.ID, err)
		}
	}()
}

// DeleteDocument removes a document from the search index (fire-and-forget).
func (s *Service) DeleteDocument(id string) {
	if !s.indexHealthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.index.DeleteDocument(id); err != nil {
			log.Printf("search: delete document %s: %v", id, err)
		}
	}()
}

// Wait blocks until queued index operations have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// ReindexAllFromPG reindexes every document from PostgreSQL into
// Meilisearch. Called at startup when Meilisearch is reachable.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if !s.indexHealthy() || s.loader == nil {
		return
	}
	documents, err := s.loader(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if len(documents) == 0 {
		return
	}
	if err := s.index.IndexDocuments(documents); err != nil {
		log.Printf("search: reindex documents: %v", err)
		return
	}
	log.Printf("search: reindexed %d documents", len(documents))
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
