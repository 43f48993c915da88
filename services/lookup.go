package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"college-chatbot-platform/internal/ai"
	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/internal/vectorindex"
	"college-chatbot-platform/models"
)

const lookupUnavailable = "No knowledge base available for semantic search."

const lookupLowConfidence = "I found some related information, but I'm not confident enough. " +
	"Please ask more specifically or contact student services."

// LookupAnswer is the result of a similarity lookup. Similarity is the
// unboosted score of the winning entry; the domain boost only affects
// ranking, never the reported confidence.
type LookupAnswer struct {
	Answer     string
	Similarity float64
	Confident  bool
	Matched    *models.QAEntry
}

// LookupConfig carries the thresholds for the lookup strategy.
type LookupConfig struct {
	TopK          int
	HighThreshold float64
	MinThreshold  float64
	DomainBoost   float64
}

// LookupService answers queries by nearest-neighbor search over the
// curated QA corpus, one index per domain, with a cross-domain recovery
// pass for misclassified queries.
type LookupService struct {
	embedder ai.Embedder
	indices  *vectorindex.Manager
	trail    audit.Trail
	cfg      LookupConfig
	dataDir  string

	mu      sync.RWMutex
	entries map[string][]models.QAEntry // domain key -> entries in index order
}

func NewLookupService(embedder ai.Embedder, indices *vectorindex.Manager, trail audit.Trail, cfg LookupConfig, dataDir string) *LookupService {
	return &LookupService{
		embedder: embedder,
		indices:  indices,
		trail:    trail,
		cfg:      cfg,
		dataDir:  dataDir,
		entries:  make(map[string][]models.QAEntry),
	}
}

func qaIndexName(domainKey string) string {
	return "qa_" + domainKey
}

// Answer embeds the query, searches the hinted domain's index and
// falls back to a cross-domain recovery pass when the best match is
// weak. The returned similarity is always unboosted.
func (s *LookupService) Answer(ctx context.Context, query string, domainHint models.Category, queryID string) LookupAnswer {
	domainKey := domainHint.DomainKey()

	idx := s.indices.Get(qaIndexName(domainKey))
	entries := s.domainEntries(domainKey)

	if idx.Len() == 0 || len(entries) == 0 {
		// Fall back to the cross-domain bucket before giving up.
		domainKey = models.CategoryCrossDomain.DomainKey()
		idx = s.indices.Get(qaIndexName(domainKey))
		entries = s.domainEntries(domainKey)
	}

	if idx.Len() == 0 || len(entries) == 0 {
		s.trail.Record(audit.RetrievalQuality{
			QueryID:   queryID,
			Strategy:  models.StrategyLookup,
			Threshold: s.cfg.HighThreshold,
		})
		return LookupAnswer{Answer: lookupUnavailable}
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("Lookup embedding failed", "query_id", queryID, "error", err)
		s.trail.Record(audit.ErrorEvent{QueryID: queryID, Stage: "lookup_embedding", Message: err.Error()})
		return LookupAnswer{Answer: lookupUnavailable}
	}

	best, bestEntry := s.searchDomain(idx, entries, vector, domainHint, queryID)

	// Cross-domain recovery: the hinted domain scored below the hard
	// minimum, so probe every other domain's best entry and take the
	// first one that both beats the original and clears the minimum.
	if best.Similarity < s.cfg.MinThreshold {
		if recovered, entry, ok := s.crossDomainRecovery(vector, domainKey, best.Similarity); ok {
			logger.Info("Cross-domain recovery succeeded",
				"query_id", queryID,
				"original_similarity", best.Similarity,
				"recovered_similarity", recovered.Similarity)
			best = recovered
			bestEntry = entry
		}
	}

	s.trail.Record(audit.RetrievalQuality{
		QueryID:    queryID,
		Strategy:   models.StrategyLookup,
		TopScore:   best.Similarity,
		NumResults: idx.Len(),
		Threshold:  s.cfg.HighThreshold,
		Accepted:   best.Similarity >= s.cfg.HighThreshold,
	})

	if bestEntry == nil || best.Similarity < s.cfg.MinThreshold {
		return LookupAnswer{
			Answer:     lookupLowConfidence,
			Similarity: best.Similarity,
		}
	}

	return LookupAnswer{
		Answer:     bestEntry.Answer,
		Similarity: best.Similarity,
		Confident:  best.Similarity >= s.cfg.HighThreshold,
		Matched:    bestEntry,
	}
}

// searchDomain runs a top-K search and ranks candidates with the
// domain boost applied, capped at 1.0. The winner's unboosted
// similarity is what gets reported.
func (s *LookupService) searchDomain(idx *vectorindex.Index, entries []models.QAEntry, vector []float32, domainHint models.Category, queryID string) (vectorindex.Result, *models.QAEntry) {
	results, err := idx.Search(vector, s.cfg.TopK)
	if err != nil {
		logger.Error("Lookup search failed", "query_id", queryID, "error", err)
		return vectorindex.Result{}, nil
	}

	var best vectorindex.Result
	var bestEntry *models.QAEntry
	bestRank := -1.0

	for _, result := range results {
		if result.Ordinal < 0 || result.Ordinal >= len(entries) {
			// A stale index can reference entries that no longer
			// exist; skip the bad hit rather than fail the search.
			logger.Warn("Lookup ordinal out of range", "ordinal", result.Ordinal, "entries", len(entries))
			continue
		}
		entry := entries[result.Ordinal]

		rank := result.Similarity
		if domainHint.IsKnown() && entry.Domain == domainHint {
			rank += s.cfg.DomainBoost
			if rank > 1.0 {
				rank = 1.0
			}
		}

		if rank > bestRank {
			bestRank = rank
			best = result
			bestEntry = &entries[result.Ordinal]
		}
	}

	return best, bestEntry
}

func (s *LookupService) crossDomainRecovery(vector []float32, originalKey string, originalBest float64) (vectorindex.Result, *models.QAEntry, bool) {
	for _, category := range models.AllCategories {
		key := category.DomainKey()
		if key == originalKey {
			continue
		}

		idx := s.indices.Get(qaIndexName(key))
		entries := s.domainEntries(key)
		if idx.Len() == 0 || len(entries) == 0 {
			continue
		}

		results, err := idx.Search(vector, 1)
		if err != nil || len(results) == 0 {
			continue
		}

		hit := results[0]
		if hit.Ordinal < 0 || hit.Ordinal >= len(entries) {
			continue
		}

		if hit.Similarity > originalBest && hit.Similarity >= s.cfg.MinThreshold {
			return hit, &entries[hit.Ordinal], true
		}
	}

	return vectorindex.Result{}, nil, false
}

// Rebuild embeds every entry's question, builds a fresh index for the
// domain and swaps it live. The entry list is persisted next to the
// index so ordinals survive restarts.
func (s *LookupService) Rebuild(ctx context.Context, domain models.Category, entries []models.QAEntry) error {
	questions := make([]string, len(entries))
	for i, entry := range entries {
		questions[i] = entry.Question
	}

	vectors, err := ai.EmbedBatch(ctx, s.embedder, questions)
	if err != nil {
		return fmt.Errorf("failed to embed %s corpus: %w", domain.DomainKey(), err)
	}

	idx, err := vectorindex.Build(vectors)
	if err != nil {
		return err
	}

	key := domain.DomainKey()
	if err := s.saveEntries(key, entries); err != nil {
		return err
	}
	if err := s.indices.Persist(qaIndexName(key), idx); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[key] = entries
	s.mu.Unlock()

	logger.Info("Lookup index rebuilt", "domain", key, "entries", len(entries))
	return nil
}

func (s *LookupService) domainEntries(domainKey string) []models.QAEntry {
	s.mu.RLock()
	entries, ok := s.entries[domainKey]
	s.mu.RUnlock()
	if ok {
		return entries
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entries, ok := s.entries[domainKey]; ok {
		return entries
	}

	entries = s.loadEntries(domainKey)
	s.entries[domainKey] = entries
	return entries
}

func (s *LookupService) entriesPath(domainKey string) string {
	return filepath.Join(s.dataDir, "qa_"+domainKey+".json")
}

func (s *LookupService) loadEntries(domainKey string) []models.QAEntry {
	data, err := os.ReadFile(s.entriesPath(domainKey))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("Failed to read QA entries", "domain", domainKey, "error", err)
		}
		return nil
	}

	var entries []models.QAEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Error("Failed to parse QA entries", "domain", domainKey, "error", err)
		return nil
	}
	return entries
}

func (s *LookupService) saveEntries(domainKey string, entries []models.QAEntry) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.entriesPath(domainKey), data, 0o644)
}
