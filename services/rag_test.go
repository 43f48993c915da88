package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/vectorindex"
	"college-chatbot-platform/internal/websearch"
	"college-chatbot-platform/models"
)

func defaultRAGConfig() RAGConfig {
	return RAGConfig{
		TopK:                   5,
		RetrievalThreshold:     1.5,
		MinConfidence:          0.5,
		MaxContextTurns:        5,
		MaxContextCharsPerTurn: 500,
	}
}

func newTestRAG(t *testing.T, embedder *stubEmbedder, generator *stubGenerator, trail audit.Trail) *RAGService {
	t.Helper()
	indices := vectorindex.NewManager(t.TempDir())
	return NewRAGService(embedder, generator, indices, nil, trail, defaultRAGConfig(), t.TempDir())
}

func TestRouteQuery(t *testing.T) {
	s := newTestRAG(t, newStubEmbedder(3), &stubGenerator{}, audit.NewMemoryTrail())

	cases := map[string]string{
		"What is the hostel fee?":                    "local",
		"latest technology news":                     "web",
		"compare our college placement with ranking": "hybrid",
		"compare IIT vs NIT":                         "web",
		"tell me something":                          "local", // default
	}
	for query, want := range cases {
		if got := s.routeQuery(query); got != want {
			t.Errorf("routeQuery(%q) = %q, want %q", query, got, want)
		}
	}
}

func TestRAGAnswerHybridWithoutLocalDocuments(t *testing.T) {
	embedder := newStubEmbedder(3)
	generator := &stubGenerator{
		response: `{"title":"Placement Comparison","items":[{"label":"Our College","value":"92% placement rate"}]}`,
	}
	trail := audit.NewMemoryTrail()
	searcher := &stubSearcher{results: []websearch.Result{{
		Title:   "Engineering Placement Rankings 2026",
		URL:     "https://example.com/rankings",
		Content: "Placement rates across engineering colleges ranged from 60% to 95%.",
	}}}
	indices := vectorindex.NewManager(t.TempDir())
	s := NewRAGService(embedder, generator, indices, searcher, trail, defaultRAGConfig(), t.TempDir())

	// Hybrid route with an empty document index: the answer comes
	// entirely from web results, so it carries the web nominal score
	// instead of a zero retrieval confidence.
	answer := s.Answer(context.Background(), "compare our college placement with ranking", nil, "q-hybrid")

	require.True(t, answer.Confident)
	require.InDelta(t, ragWebNominalConfidence, answer.Confidence, 1e-9)
	require.Contains(t, answer.Response, "**Placement Comparison**")
}

func TestRAGAnswerFromLocalDocuments(t *testing.T) {
	embedder := newStubEmbedder(3)
	generator := &stubGenerator{
		response: `{"title":"Hostel Fee","items":[{"label":"Annual Fee","value":"50,000"}],"notes":"Includes mess charges"}`,
	}
	trail := audit.NewMemoryTrail()
	s := newTestRAG(t, embedder, generator, trail)

	content := "The hostel fee is 50,000 per year including mess charges."
	chunker, err := NewChunker(400, 50)
	require.NoError(t, err)

	embedder.set(content, []float32{1, 0, 0})
	docs := []models.Document{{Source: "hostel.txt", Content: content, DocType: "text"}}
	require.NoError(t, s.Rebuild(context.Background(), docs, chunker))

	query := "What is the hostel fee?"
	embedder.set(query, []float32{1, 0, 0})

	answer := s.Answer(context.Background(), query, nil, "q1")

	require.True(t, answer.Confident)
	require.InDelta(t, 1.0, answer.Confidence, 1e-9)
	require.Contains(t, answer.Response, "**Hostel Fee**")
	require.Contains(t, answer.Response, "**Annual Fee:** 50,000")
	require.Contains(t, answer.Response, "_Includes mess charges_")
	require.Equal(t, []string{"hostel.txt"}, answer.Sources)

	generated := trail.ByKind(audit.EventAnswerGeneration)
	require.Len(t, generated, 1)
}

func TestRAGAnswerNoDocuments(t *testing.T) {
	trail := audit.NewMemoryTrail()
	s := newTestRAG(t, newStubEmbedder(3), &stubGenerator{}, trail)

	answer := s.Answer(context.Background(), "What is the hostel fee?", nil, "q2")

	require.False(t, answer.Confident)
	require.Equal(t, ragNoInfoMessage, answer.Response)

	rejections := trail.ByKind(audit.EventAnswerRejection)
	require.Len(t, rejections, 1)
	require.Equal(t, "no documents retrieved", rejections[0].(audit.AnswerRejection).Reason)
}

func TestRAGAnswerLowConfidence(t *testing.T) {
	embedder := newStubEmbedder(3)
	trail := audit.NewMemoryTrail()
	s := newTestRAG(t, embedder, &stubGenerator{}, trail)

	content := "Completely unrelated document content about something else."
	chunker, _ := NewChunker(400, 50)
	embedder.set(content, []float32{0, 3, 0})
	require.NoError(t, s.Rebuild(context.Background(),
		[]models.Document{{Source: "misc.txt", Content: content}}, chunker))

	query := "What is the exam fee?"
	embedder.set(query, []float32{0, 0, 0}) // d=9 -> sim 0.1 < 0.5

	answer := s.Answer(context.Background(), query, nil, "q3")

	require.False(t, answer.Confident)
	require.Equal(t, ragLowConfidenceMessage, answer.Response)
	require.InDelta(t, 0.1, answer.Confidence, 1e-9)
}

func TestRAGHistoryTruncation(t *testing.T) {
	embedder := newStubEmbedder(3)
	generator := &stubGenerator{response: `{"title":"T","items":[{"label":"L","value":"V"}]}`}
	s := newTestRAG(t, embedder, generator, audit.NewMemoryTrail())

	content := "The library fee is 500 per semester."
	chunker, _ := NewChunker(400, 50)
	embedder.set(content, []float32{1, 0, 0})
	require.NoError(t, s.Rebuild(context.Background(),
		[]models.Document{{Source: "fees.txt", Content: content}}, chunker))

	query := "What about the library fee?"
	embedder.set(query, []float32{1, 0, 0})

	var history []models.HistoryTurn
	for i := 1; i <= 7; i++ {
		history = append(history, models.HistoryTurn{
			Query:    fmt.Sprintf("history-question-%d", i),
			Response: fmt.Sprintf("history-answer-%d", i),
		})
	}

	s.Answer(context.Background(), query, history, "q4")

	prompt := generator.lastPrompt()
	// Only the most recent five turns survive.
	require.NotContains(t, prompt, "history-question-1")
	require.NotContains(t, prompt, "history-question-2")
	for i := 3; i <= 7; i++ {
		require.Contains(t, prompt, fmt.Sprintf("history-question-%d", i))
	}
}

func TestRAGHistoryTurnCharBudget(t *testing.T) {
	embedder := newStubEmbedder(3)
	generator := &stubGenerator{response: `{"title":"T","items":[{"label":"L","value":"V"}]}`}
	s := newTestRAG(t, embedder, generator, audit.NewMemoryTrail())

	content := "Placement statistics for the current year."
	chunker, _ := NewChunker(400, 50)
	embedder.set(content, []float32{1, 0, 0})
	require.NoError(t, s.Rebuild(context.Background(),
		[]models.Document{{Source: "placement.txt", Content: content}}, chunker))

	query := "placement query"
	embedder.set(query, []float32{1, 0, 0})

	long := strings.Repeat("x", 800)
	s.Answer(context.Background(), query, []models.HistoryTurn{{Query: long, Response: long}}, "q5")

	prompt := generator.lastPrompt()
	require.Contains(t, prompt, strings.Repeat("x", 500))
	require.NotContains(t, prompt, strings.Repeat("x", 501))
}

func TestRAGGenerationFallbackToRawContext(t *testing.T) {
	embedder := newStubEmbedder(3)
	generator := &stubGenerator{response: "I am not valid JSON at all"}
	s := newTestRAG(t, embedder, generator, audit.NewMemoryTrail())

	content := "The bus pass costs 2,000 per semester."
	chunker, _ := NewChunker(400, 50)
	embedder.set(content, []float32{1, 0, 0})
	require.NoError(t, s.Rebuild(context.Background(),
		[]models.Document{{Source: "transport.txt", Content: content}}, chunker))

	query := "bus pass fee"
	embedder.set(query, []float32{1, 0, 0})

	answer := s.Answer(context.Background(), query, nil, "q6")

	// Unparseable generation degrades to the raw context passthrough.
	require.Contains(t, answer.Response, content)
	require.Contains(t, answer.Response, "_For more information")
}

func TestBuildContextWindowBudget(t *testing.T) {
	s := newTestRAG(t, newStubEmbedder(3), &stubGenerator{}, audit.NewMemoryTrail())

	var retrieved []retrievedChunk
	for i := 0; i < 10; i++ {
		retrieved = append(retrieved, retrievedChunk{
			chunk: models.DocumentChunk{
				Text:    strings.Repeat("a", 400),
				Source:  "doc.txt",
				ChunkID: i,
			},
		})
	}

	window := s.buildContextWindow(retrieved)

	// Budget is MaxContextCharsPerTurn * TopK = 2500 chars; each part is
	// a bit over 400 chars, so at most 5 chunks fit and chunk 6 must not
	// appear.
	require.LessOrEqual(t, len(window), 2500+len("\n\n---\n\n")*5)
	require.Contains(t, window, "Chunk 0]")
	require.NotContains(t, window, "Chunk 6]")
}
