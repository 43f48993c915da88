package services

import (
	"context"

	"college-chatbot-platform/internal/corpus"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/models"
)

// KnowledgeGapService records queries no strategy answered confidently
// and later re-evaluates them against the (possibly updated) document
// index. A gap whose best chunk now clears the auto-promotion
// threshold is promoted into the QA corpus.
type KnowledgeGapService struct {
	gaps      corpus.GapStore
	qa        corpus.QAStore
	rag       *RAGService
	lookup    *LookupService
	threshold float64
}

func NewKnowledgeGapService(gaps corpus.GapStore, qa corpus.QAStore, rag *RAGService, lookup *LookupService, threshold float64) *KnowledgeGapService {
	return &KnowledgeGapService{
		gaps:      gaps,
		qa:        qa,
		rag:       rag,
		lookup:    lookup,
		threshold: threshold,
	}
}

// RecordGap queues an unanswered query for review. Best effort.
func (s *KnowledgeGapService) RecordGap(ctx context.Context, gap models.UnresolvedQuery) {
	if err := s.gaps.Record(ctx, gap); err != nil {
		logger.Warn("Failed to record knowledge gap", "query", gap.Query, "error", err)
	}
}

// ListGaps returns the open knowledge gaps, newest first.
func (s *KnowledgeGapService) ListGaps(ctx context.Context, limit int) ([]models.UnresolvedQuery, error) {
	return s.gaps.ListUnresolved(ctx, limit)
}

// ReevaluateResult summarizes one re-evaluation pass.
type ReevaluateResult struct {
	Evaluated int `json:"evaluated"`
	Promoted  int `json:"promoted"`
	Remaining int `json:"remaining"`
}

// Reevaluate searches the document index for every open gap. Gaps
// whose best match clears the auto-promotion threshold become QA
// entries; their domain's lookup index is rebuilt afterwards so the
// promoted answers are immediately retrievable.
func (s *KnowledgeGapService) Reevaluate(ctx context.Context) (ReevaluateResult, error) {
	gaps, err := s.gaps.ListUnresolved(ctx, 0)
	if err != nil {
		return ReevaluateResult{}, err
	}

	result := ReevaluateResult{Evaluated: len(gaps)}
	touchedDomains := make(map[models.Category]bool)

	for _, gap := range gaps {
		answer, similarity, ok := s.bestChunkAnswer(ctx, gap.Query)
		if !ok || similarity < s.threshold {
			result.Remaining++
			continue
		}

		domain := gap.Category
		if !domain.IsKnown() {
			domain = models.CategoryGeneral
		}

		entry := models.QAEntry{
			Question: gap.Query,
			Answer:   answer,
			Domain:   domain,
			Source:   "knowledge_updater_auto",
		}

		if err := s.qa.Insert(ctx, entry); err != nil {
			logger.Warn("Failed to promote knowledge gap", "query", gap.Query, "error", err)
			result.Remaining++
			continue
		}
		if err := s.gaps.MarkPromoted(ctx, gap.ID); err != nil {
			logger.Warn("Failed to mark gap promoted", "id", gap.ID, "error", err)
		}

		logger.Info("Knowledge gap promoted", "query", gap.Query, "similarity", similarity, "domain", domain.DomainKey())
		touchedDomains[domain] = true
		result.Promoted++
	}

	// Rebuild only the lookup indices that actually gained entries.
	for domain := range touchedDomains {
		entries, err := s.qa.ListByDomain(ctx, domain)
		if err != nil {
			logger.Error("Failed to list QA entries for rebuild", "domain", domain.DomainKey(), "error", err)
			continue
		}
		if err := s.lookup.Rebuild(ctx, domain, entries); err != nil {
			logger.Error("Failed to rebuild lookup index after promotion", "domain", domain.DomainKey(), "error", err)
		}
	}

	return result, nil
}

// bestChunkAnswer returns the document index's closest chunk text for
// the query and its similarity.
func (s *KnowledgeGapService) bestChunkAnswer(ctx context.Context, query string) (string, float64, bool) {
	idx := s.rag.indices.Get(docIndexName)
	chunks := s.rag.chunkMetadata()
	if idx.Len() == 0 || len(chunks) == 0 {
		return "", 0, false
	}

	vector, err := s.rag.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Gap re-evaluation embedding failed", "query", query, "error", err)
		return "", 0, false
	}

	results, err := idx.Search(vector, 1)
	if err != nil || len(results) == 0 {
		return "", 0, false
	}

	hit := results[0]
	if hit.Ordinal < 0 || hit.Ordinal >= len(chunks) {
		return "", 0, false
	}

	return chunks[hit.Ordinal].Text, hit.Similarity, true
}
