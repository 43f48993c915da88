package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/corpus"
	"college-chatbot-platform/models"
)

func TestReevaluatePromotesCoveredGaps(t *testing.T) {
	embedder := newStubEmbedder(3)
	trail := audit.NewMemoryTrail()
	lookup := newTestLookup(t, embedder, trail)
	rag := newTestRAG(t, embedder, &stubGenerator{}, trail)
	store := corpus.NewMemoryStore()
	svc := NewKnowledgeGapService(store, store, rag, lookup, 0.75)

	// The document index now covers the first gap exactly.
	content := "Hostel mess charges are 3,000 per month, payable at the start of each semester."
	chunker, err := NewChunker(400, 50)
	require.NoError(t, err)
	embedder.set(content, []float32{1, 0, 0})
	require.NoError(t, rag.Rebuild(context.Background(),
		[]models.Document{{Source: "hostel.txt", Content: content}}, chunker))

	covered := "What are the mess charges per month?"
	embedder.set(covered, []float32{1, 0, 0})
	svc.RecordGap(context.Background(), models.UnresolvedQuery{
		Query:    covered,
		Category: models.CategoryCampusLife,
	})

	// Uncovered gap stays on the default far-away vector.
	svc.RecordGap(context.Background(), models.UnresolvedQuery{
		Query:    "completely uncovered question",
		Category: models.CategoryAcademic,
	})

	result, err := svc.Reevaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Evaluated)
	require.Equal(t, 1, result.Promoted)
	require.Equal(t, 1, result.Remaining)

	// Promoted gap became a QA entry in its domain.
	entries, err := store.ListByDomain(context.Background(), models.CategoryCampusLife)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, covered, entries[0].Question)
	require.Equal(t, content, entries[0].Answer)
	require.Equal(t, "knowledge_updater_auto", entries[0].Source)

	// Only the uncovered gap is still open.
	open, err := store.ListUnresolved(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "completely uncovered question", open[0].Query)

	// The rebuilt lookup index answers the promoted question directly.
	answer := lookup.Answer(context.Background(), covered, models.CategoryCampusLife, "q1")
	require.True(t, answer.Confident)
	require.Equal(t, content, answer.Answer)
}

func TestReevaluateUnknownCategoryFallsBackToGeneral(t *testing.T) {
	embedder := newStubEmbedder(3)
	lookup := newTestLookup(t, embedder, audit.NewMemoryTrail())
	rag := newTestRAG(t, embedder, &stubGenerator{}, audit.NewMemoryTrail())
	store := corpus.NewMemoryStore()
	svc := NewKnowledgeGapService(store, store, rag, lookup, 0.75)

	content := "The college was established in 1985."
	chunker, _ := NewChunker(400, 50)
	embedder.set(content, []float32{1, 0, 0})
	require.NoError(t, rag.Rebuild(context.Background(),
		[]models.Document{{Source: "about.txt", Content: content}}, chunker))

	query := "When was the college established?"
	embedder.set(query, []float32{1, 0, 0})
	svc.RecordGap(context.Background(), models.UnresolvedQuery{Query: query, Category: "Mystery"})

	result, err := svc.Reevaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Promoted)

	entries, err := store.ListByDomain(context.Background(), models.CategoryGeneral)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestReevaluateWithoutDocumentIndex(t *testing.T) {
	embedder := newStubEmbedder(3)
	lookup := newTestLookup(t, embedder, audit.NewMemoryTrail())
	rag := newTestRAG(t, embedder, &stubGenerator{}, audit.NewMemoryTrail())
	store := corpus.NewMemoryStore()
	svc := NewKnowledgeGapService(store, store, rag, lookup, 0.75)

	svc.RecordGap(context.Background(), models.UnresolvedQuery{Query: "anything at all"})

	result, err := svc.Reevaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Evaluated)
	require.Equal(t, 0, result.Promoted)
	require.Equal(t, 1, result.Remaining)
}
