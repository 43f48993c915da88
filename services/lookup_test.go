package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/vectorindex"
	"college-chatbot-platform/models"
)

func defaultLookupConfig() LookupConfig {
	return LookupConfig{
		TopK:          3,
		HighThreshold: 0.65,
		MinThreshold:  0.45,
		DomainBoost:   0.1,
	}
}

// seedDomain installs an in-memory index and entry list for a domain.
func seedDomain(t *testing.T, s *LookupService, domain models.Category, entries []models.QAEntry, vectors [][]float32) {
	t.Helper()

	idx, err := vectorindex.Build(vectors)
	require.NoError(t, err)

	key := domain.DomainKey()
	s.indices.Swap(qaIndexName(key), idx)
	s.mu.Lock()
	s.entries[key] = entries
	s.mu.Unlock()
}

func newTestLookup(t *testing.T, embedder *stubEmbedder, trail audit.Trail) *LookupService {
	t.Helper()
	indices := vectorindex.NewManager(t.TempDir())
	return NewLookupService(embedder, indices, trail, defaultLookupConfig(), t.TempDir())
}

func TestLookupConfidentMatch(t *testing.T) {
	embedder := newStubEmbedder(3)
	trail := audit.NewMemoryTrail()
	s := newTestLookup(t, embedder, trail)

	entries := []models.QAEntry{
		{Question: "What is the tuition fee?", Answer: "Tuition is 80,000 per year.", Domain: models.CategoryFinancial},
		{Question: "Is there a scholarship?", Answer: "Merit scholarships are available.", Domain: models.CategoryFinancial},
	}
	seedDomain(t, s, models.CategoryFinancial, entries, [][]float32{{1, 0, 0}, {0, 1, 0}})

	embedder.set("What is the tuition fee?", []float32{1, 0, 0})

	answer := s.Answer(context.Background(), "What is the tuition fee?", models.CategoryFinancial, "q1")

	require.True(t, answer.Confident)
	require.Equal(t, "Tuition is 80,000 per year.", answer.Answer)
	require.InDelta(t, 1.0, answer.Similarity, 1e-9)

	quality := trail.ByKind(audit.EventRetrievalQuality)
	require.Len(t, quality, 1)
	require.True(t, quality[0].(audit.RetrievalQuality).Accepted)
}

func TestLookupBoostAffectsRankingNotScore(t *testing.T) {
	embedder := newStubEmbedder(3)
	s := newTestLookup(t, embedder, audit.NewMemoryTrail())

	// Entry 0 belongs to the hinted domain and sits slightly farther
	// from the query than entry 1. The boost must let entry 0 win the
	// ranking while the reported similarity stays entry 0's unboosted
	// value.
	entries := []models.QAEntry{
		{Question: "hostel fee", Answer: "in-domain answer", Domain: models.CategoryFinancial},
		{Question: "hostel rules", Answer: "off-domain answer", Domain: models.CategoryCampusLife},
	}
	// query at origin: d0 = 0.25 -> sim 0.8; d1 = 0.2 -> sim ~0.8333.
	// boosted rank for entry 0: 0.9 > 0.8333.
	seedDomain(t, s, models.CategoryFinancial, entries, [][]float32{{0.5, 0, 0}, {0, 0.4472136, 0}})

	embedder.set("query", []float32{0, 0, 0})

	answer := s.Answer(context.Background(), "query", models.CategoryFinancial, "q2")

	require.Equal(t, "in-domain answer", answer.Answer)
	require.InDelta(t, 0.8, answer.Similarity, 1e-6) // unboosted
	require.True(t, answer.Confident)                // 0.8 >= 0.65
}

func TestLookupLowConfidence(t *testing.T) {
	embedder := newStubEmbedder(3)
	trail := audit.NewMemoryTrail()
	s := newTestLookup(t, embedder, trail)

	entries := []models.QAEntry{
		{Question: "q", Answer: "a", Domain: models.CategoryFinancial},
	}
	// d = 1 -> sim 0.5: above min (0.45) but below high (0.65).
	seedDomain(t, s, models.CategoryFinancial, entries, [][]float32{{1, 0, 0}})
	embedder.set("borderline", []float32{0, 0, 0})

	answer := s.Answer(context.Background(), "borderline", models.CategoryFinancial, "q3")

	require.False(t, answer.Confident)
	require.Equal(t, "a", answer.Answer)
	require.InDelta(t, 0.5, answer.Similarity, 1e-9)
}

func TestLookupCrossDomainRecovery(t *testing.T) {
	embedder := newStubEmbedder(3)
	s := newTestLookup(t, embedder, audit.NewMemoryTrail())

	// The hinted domain only has a hopeless match; another domain holds
	// the real answer. Recovery must find it.
	seedDomain(t, s, models.CategoryFinancial,
		[]models.QAEntry{{Question: "unrelated", Answer: "wrong", Domain: models.CategoryFinancial}},
		[][]float32{{0, 50, 0}})
	seedDomain(t, s, models.CategoryAcademic,
		[]models.QAEntry{{Question: "syllabus", Answer: "recovered answer", Domain: models.CategoryAcademic}},
		[][]float32{{1, 0, 0}})

	embedder.set("misrouted query", []float32{1, 0, 0})

	answer := s.Answer(context.Background(), "misrouted query", models.CategoryFinancial, "q4")

	require.Equal(t, "recovered answer", answer.Answer)
	require.True(t, answer.Confident)
	require.InDelta(t, 1.0, answer.Similarity, 1e-9)
}

func TestLookupNoRecoveryAboveMinimum(t *testing.T) {
	embedder := newStubEmbedder(3)
	s := newTestLookup(t, embedder, audit.NewMemoryTrail())

	// Hinted domain clears the minimum, so the (better) entry in the
	// other domain must not be consulted.
	seedDomain(t, s, models.CategoryFinancial,
		[]models.QAEntry{{Question: "fee", Answer: "domain answer", Domain: models.CategoryFinancial}},
		[][]float32{{1, 0, 0}})
	seedDomain(t, s, models.CategoryAcademic,
		[]models.QAEntry{{Question: "fee exact", Answer: "other answer", Domain: models.CategoryAcademic}},
		[][]float32{{0, 0, 0}})

	embedder.set("fee query", []float32{0, 0, 0}) // d=1 to financial -> sim 0.5

	answer := s.Answer(context.Background(), "fee query", models.CategoryFinancial, "q5")

	require.Equal(t, "domain answer", answer.Answer)
	require.InDelta(t, 0.5, answer.Similarity, 1e-9)
}

func TestLookupUnavailable(t *testing.T) {
	embedder := newStubEmbedder(3)
	s := newTestLookup(t, embedder, audit.NewMemoryTrail())

	answer := s.Answer(context.Background(), "anything", models.CategoryFinancial, "q6")

	require.False(t, answer.Confident)
	require.Equal(t, lookupUnavailable, answer.Answer)
}
