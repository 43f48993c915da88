package corpus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"college-chatbot-platform/models"
)

// MemoryStore is an in-memory implementation of the corpus stores.
// Used in tests and for single-node deployments without MongoDB.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []models.QAEntry
	docs     []models.Document
	ingested map[string]string // source -> content hash
	gaps     map[string]models.UnresolvedQuery
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ingested: make(map[string]string),
		gaps:     make(map[string]models.UnresolvedQuery),
	}
}

func (s *MemoryStore) ListByDomain(_ context.Context, domain models.Category) ([]models.QAEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.QAEntry
	for _, e := range s.entries {
		if e.Domain == domain {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]models.QAEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.QAEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, entry models.QAEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.Question == entry.Question {
			return fmt.Errorf("duplicate question: %q", entry.Question)
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) ListDocuments(_ context.Context) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Document, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

func (s *MemoryStore) InsertDocument(_ context.Context, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.docs {
		if existing.Source == doc.Source {
			s.docs[i] = doc
			return nil
		}
	}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *MemoryStore) HasIngested(_ context.Context, source, contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hash, ok := s.ingested[source]
	return ok && hash == contentHash, nil
}

func (s *MemoryStore) MarkIngested(_ context.Context, source, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingested[source] = contentHash
	return nil
}

func (s *MemoryStore) Record(_ context.Context, gap models.UnresolvedQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gap.Timestamp.IsZero() {
		gap.Timestamp = time.Now().UTC()
	}
	if gap.Status == "" {
		gap.Status = "unresolved"
	}

	for id, existing := range s.gaps {
		if existing.Query == gap.Query {
			existing.Category = gap.Category
			existing.LookupScore = gap.LookupScore
			existing.RAGConfidence = gap.RAGConfidence
			existing.Timestamp = gap.Timestamp
			s.gaps[id] = existing
			return nil
		}
	}

	if gap.ID == "" {
		gap.ID = uuid.NewString()
	}
	s.gaps[gap.ID] = gap
	return nil
}

func (s *MemoryStore) ListUnresolved(_ context.Context, limit int) ([]models.UnresolvedQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.UnresolvedQuery
	for _, gap := range s.gaps {
		if gap.Status == "unresolved" {
			out = append(out, gap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.UnresolvedQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gap, ok := s.gaps[id]
	if !ok {
		return gap, ErrNotFound
	}
	return gap, nil
}

func (s *MemoryStore) MarkPromoted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gap, ok := s.gaps[id]
	if !ok {
		return ErrNotFound
	}
	gap.Status = "promoted"
	s.gaps[id] = gap
	return nil
}
