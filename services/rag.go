package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"college-chatbot-platform/internal/ai"
	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/internal/vectorindex"
	"college-chatbot-platform/internal/websearch"
	"college-chatbot-platform/models"
)

const docIndexName = "documents"

const ragNoInfoMessage = "**No Official Information Found**\n\n" +
	"I don't have information about this topic in the official college database. " +
	"Please contact:\n" +
	"- Student Services\n" +
	"- Registrar's Office\n" +
	"- Your Academic Advisor"

const ragLowConfidenceMessage = "**Low Confidence Answer**\n\n" +
	"I found some related information, but I'm not confident it accurately " +
	"answers your question. " +
	"Please contact student services or check the official college website for accurate information."

const ragErrorMessage = "**System Error**\n\nSomething went wrong while generating the answer. Please try again."

// nominal confidence for answers grounded in web results, which carry
// no retrieval score.
const ragWebNominalConfidence = 0.7

// Source routing keyword sets. Hybrid wins when a comparative phrase
// appears together with a college reference.
var ragLocalKeywords = []string{
	"college", "department", "fee", "tuition", "placement", "campus",
	"hostel", "library", "exam", "syllabus", "faculty", "admin",
	"laboratory", "professors", "bus", "transport",
	"canteen", "calendar", "result",
}

var ragWebKeywords = []string{
	"news", "event", "hackathon", "technology", "ai", "compare",
	"ranking", "current affairs", "world", "india", "global",
	"latest", "google", "microsoft", "trend", "weather",
}

var ragHybridKeywords = []string{
	"compare", "vs", "better than", "difference between", "ranking of our college",
	"market trend", "industry demand",
}

// RAGAnswer is the result of the retrieval-augmented strategy.
type RAGAnswer struct {
	Response   string
	Confidence float64
	Confident  bool
	Sources    []string
}

// RAGConfig carries the thresholds and budgets for the RAG strategy.
type RAGConfig struct {
	TopK                   int
	RetrievalThreshold     float64 // squared L2 distance, lower is better
	MinConfidence          float64
	MaxContextTurns        int
	MaxContextCharsPerTurn int
}

// RAGService answers queries by chunk retrieval over long-form
// documents, optionally blended with live web search, feeding a
// structured-output generation step.
type RAGService struct {
	embedder  ai.Embedder
	generator ai.Generator
	indices   *vectorindex.Manager
	searcher  websearch.Searcher // nil when web search is not configured
	trail     audit.Trail
	cfg       RAGConfig
	dataDir   string

	mu     sync.RWMutex
	chunks []models.DocumentChunk // aligned with document index ordinals
	loaded bool
}

func NewRAGService(embedder ai.Embedder, generator ai.Generator, indices *vectorindex.Manager, searcher websearch.Searcher, trail audit.Trail, cfg RAGConfig, dataDir string) *RAGService {
	return &RAGService{
		embedder:  embedder,
		generator: generator,
		indices:   indices,
		searcher:  searcher,
		trail:     trail,
		cfg:       cfg,
		dataDir:   dataDir,
	}
}

// Answer runs the full RAG pipeline. Every failure inside it is caught
// and converted into a safe response; it never returns an error to the
// orchestrator.
func (s *RAGService) Answer(ctx context.Context, query string, history []models.HistoryTurn, queryID string) RAGAnswer {
	if len(history) > s.cfg.MaxContextTurns {
		history = history[len(history)-s.cfg.MaxContextTurns:]
	}

	route := s.routeQuery(query)
	logger.Info("RAG source routing", "query_id", queryID, "route", route)

	var localContext string
	var confidence float64
	var sources []string
	var bestChunk *models.DocumentChunk

	if route == "local" || route == "hybrid" {
		retrieved, conf := s.retrieve(ctx, query, queryID)
		confidence = conf

		if len(retrieved) == 0 {
			if route == "local" {
				s.trail.Record(audit.AnswerRejection{
					QueryID:   queryID,
					Strategy:  models.StrategyRAG,
					Threshold: s.cfg.MinConfidence,
					Reason:    "no documents retrieved",
				})
				return RAGAnswer{Response: ragNoInfoMessage}
			}
			localContext = "No local information found."
		} else {
			if conf < s.cfg.MinConfidence && route == "local" {
				s.trail.Record(audit.AnswerRejection{
					QueryID:    queryID,
					Strategy:   models.StrategyRAG,
					Confidence: conf,
					Threshold:  s.cfg.MinConfidence,
					Reason:     "low retrieval confidence",
				})
				return RAGAnswer{Response: ragLowConfidenceMessage, Confidence: conf}
			}

			localContext = s.buildContextWindow(retrieved)
			bestChunk = &retrieved[0].chunk
			for _, r := range retrieved {
				sources = append(sources, r.chunk.Source)
			}
		}
	}

	var webContext string
	if route == "web" || route == "hybrid" {
		webContext = s.searchWeb(ctx, query, queryID)
		if webContext == "" {
			webContext = "No web information found."
		}
	}

	var contextText string
	switch route {
	case "local":
		contextText = localContext
	case "web":
		contextText = webContext
		confidence = ragWebNominalConfidence
	default:
		contextText = "=== LOCAL COLLEGE KNOWLEDGE ===\n" + localContext +
			"\n\n=== WEB KNOWLEDGE ===\n" + webContext
		if confidence == 0 {
			// The web side is carrying the answer.
			confidence = ragWebNominalConfidence
		}
	}

	if strings.TrimSpace(contextText) == "" {
		return RAGAnswer{Response: ragNoInfoMessage}
	}

	response := s.synthesize(ctx, query, history, contextText, bestChunk, queryID)

	s.trail.Record(audit.AnswerGeneration{
		QueryID:       queryID,
		Strategy:      models.StrategyRAG,
		Confidence:    confidence,
		ResponseChars: len(response),
		Sources:       sources,
	})

	return RAGAnswer{
		Response:   response,
		Confidence: confidence,
		Confident:  true,
		Sources:    sources,
	}
}

type retrievedChunk struct {
	chunk      models.DocumentChunk
	distance   float64
	similarity float64
}

func (s *RAGService) retrieve(ctx context.Context, query, queryID string) ([]retrievedChunk, float64) {
	idx := s.indices.Get(docIndexName)
	chunks := s.chunkMetadata()

	if idx.Len() == 0 || len(chunks) == 0 {
		logger.Warn("Document index not available", "query_id", queryID)
		return nil, 0
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("RAG embedding failed", "query_id", queryID, "error", err)
		s.trail.Record(audit.ErrorEvent{QueryID: queryID, Stage: "rag_embedding", Message: err.Error()})
		return nil, 0
	}

	results, err := idx.Search(vector, s.cfg.TopK)
	if err != nil {
		logger.Error("RAG search failed", "query_id", queryID, "error", err)
		s.trail.Record(audit.ErrorEvent{QueryID: queryID, Stage: "rag_retrieval", Message: err.Error()})
		return nil, 0
	}

	var retrieved []retrievedChunk
	for _, result := range results {
		if result.Ordinal < 0 || result.Ordinal >= len(chunks) {
			logger.Warn("RAG ordinal out of range", "ordinal", result.Ordinal, "chunks", len(chunks))
			continue
		}
		retrieved = append(retrieved, retrievedChunk{
			chunk:      chunks[result.Ordinal],
			distance:   result.Distance,
			similarity: result.Similarity,
		})
	}

	if len(retrieved) == 0 {
		return nil, 0
	}

	confidence := retrieved[0].similarity

	s.trail.Record(audit.RetrievalQuality{
		QueryID:    queryID,
		Strategy:   models.StrategyRAG,
		TopScore:   confidence,
		NumResults: len(retrieved),
		Threshold:  s.cfg.MinConfidence,
		Accepted:   retrieved[0].distance <= s.cfg.RetrievalThreshold,
	})

	return retrieved, confidence
}

// buildContextWindow concatenates retrieved chunks in rank order until
// the character budget is exceeded.
func (s *RAGService) buildContextWindow(retrieved []retrievedChunk) string {
	maxChars := s.cfg.MaxContextCharsPerTurn * s.cfg.TopK

	var parts []string
	total := 0
	for _, r := range retrieved {
		part := fmt.Sprintf("[Source: %s, Chunk %d]\n%s", r.chunk.Source, r.chunk.ChunkID, r.chunk.Text)
		if total+len(part) > maxChars {
			break
		}
		parts = append(parts, part)
		total += len(part)
	}

	return strings.Join(parts, "\n\n---\n\n")
}

func (s *RAGService) searchWeb(ctx context.Context, query, queryID string) string {
	if s.searcher == nil {
		return ""
	}

	results, err := s.searcher.Search(ctx, query, 3)
	if err != nil {
		logger.Warn("Web search failed", "query_id", queryID, "error", err)
		return ""
	}

	var parts []string
	for _, res := range results {
		parts = append(parts, fmt.Sprintf("Source: %s (%s)\nContent: %s\n", res.Title, res.URL, res.Content))
	}
	return strings.Join(parts, "\n---\n")
}

// routeQuery decides whether to consult the local index, the web, or
// both.
func (s *RAGService) routeQuery(query string) string {
	q := strings.ToLower(query)

	containsAny := func(keywords []string) bool {
		for _, k := range keywords {
			if strings.Contains(q, k) {
				return true
			}
		}
		return false
	}

	// Comparative questions that reference the college force both
	// sources; "compare IIT vs NIT" alone stays a web query.
	if containsAny(ragHybridKeywords) {
		if containsAny(ragLocalKeywords) || strings.Contains(q, "our") || strings.Contains(q, " us ") {
			return "hybrid"
		}
	}

	isLocal := containsAny(ragLocalKeywords)
	isWeb := containsAny(ragWebKeywords)

	switch {
	case isLocal && !isWeb:
		return "local"
	case isWeb && !isLocal:
		return "web"
	case isLocal && isWeb:
		return "hybrid"
	}

	// Default to local; this is a college bot.
	return "local"
}

const generationInstructions = `You are a college information assistant. Answer ONLY from the provided context.
Respond with a single JSON object and nothing else, using exactly this shape:
{"title": "Topic Name", "items": [{"label": "Label", "value": "Value"}], "notes": "Optional short note"}
Use at most 5 items. If the context does not answer the question, use an empty items array.
Do not invent facts that are not in the context.`

// synthesize asks the generator for a structured record and renders it.
// Unparseable or failed generation degrades to a raw-context
// passthrough, then to the best chunk's text.
func (s *RAGService) synthesize(ctx context.Context, query string, history []models.HistoryTurn, contextText string, bestChunk *models.DocumentChunk, queryID string) string {
	var prompt strings.Builder
	prompt.WriteString(generationInstructions)
	prompt.WriteString("\n\n")

	for _, turn := range history {
		q := turn.Query
		if len(q) > s.cfg.MaxContextCharsPerTurn {
			q = q[:s.cfg.MaxContextCharsPerTurn]
		}
		r := turn.Response
		if len(r) > s.cfg.MaxContextCharsPerTurn {
			r = r[:s.cfg.MaxContextCharsPerTurn]
		}
		prompt.WriteString(fmt.Sprintf("Previous Q: %s\nPrevious A: %s\n", q, r))
	}

	prompt.WriteString("\nContext:\n")
	prompt.WriteString(contextText)
	prompt.WriteString("\n\nQuestion: ")
	prompt.WriteString(query)

	raw, err := s.generator.Generate(ctx, prompt.String())
	if err != nil {
		logger.Warn("Generation failed, using raw context fallback", "query_id", queryID, "error", err)
		s.trail.Record(audit.ErrorEvent{QueryID: queryID, Stage: "rag_generation", Message: err.Error()})
		return s.rawFallback(contextText, bestChunk)
	}

	record, ok := ExtractRecord(raw)
	if !ok {
		logger.Warn("Generation output unparseable, using raw context fallback", "query_id", queryID)
		return s.rawFallback(contextText, bestChunk)
	}

	return RenderRecord(record)
}

func (s *RAGService) rawFallback(contextText string, bestChunk *models.DocumentChunk) string {
	if strings.TrimSpace(contextText) != "" {
		return contextText + "\n\n_For more information, contact Student Services or visit the college website._"
	}
	if bestChunk != nil {
		return fmt.Sprintf("%s\n\n**Source:** %s (Chunk %d)", bestChunk.Text, bestChunk.Source, bestChunk.ChunkID)
	}
	return ragNoInfoMessage
}

// Rebuild chunks the documents, embeds every chunk and swaps in a
// fresh document index. Chunk metadata is persisted next to the index
// so ordinals survive restarts.
func (s *RAGService) Rebuild(ctx context.Context, docs []models.Document, chunker *Chunker) error {
	var chunks []models.DocumentChunk
	for _, doc := range docs {
		chunks = append(chunks, chunker.Chunk(doc)...)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := ai.EmbedBatch(ctx, s.embedder, texts)
	if err != nil {
		return fmt.Errorf("failed to embed document chunks: %w", err)
	}

	idx, err := vectorindex.Build(vectors)
	if err != nil {
		return err
	}

	if err := s.saveChunks(chunks); err != nil {
		return err
	}
	if err := s.indices.Persist(docIndexName, idx); err != nil {
		return err
	}

	s.mu.Lock()
	s.chunks = chunks
	s.loaded = true
	s.mu.Unlock()

	logger.Info("Document index rebuilt", "documents", len(docs), "chunks", len(chunks))
	return nil
}

func (s *RAGService) chunkMetadata() []models.DocumentChunk {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.chunks
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.chunks
	}

	data, err := os.ReadFile(s.chunksPath())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("Failed to read chunk metadata", "error", err)
		}
		s.loaded = true
		return nil
	}

	if err := json.Unmarshal(data, &s.chunks); err != nil {
		logger.Error("Failed to parse chunk metadata", "error", err)
		s.chunks = nil
	}
	s.loaded = true
	return s.chunks
}

func (s *RAGService) chunksPath() string {
	return filepath.Join(s.dataDir, "doc_chunks.json")
}

func (s *RAGService) saveChunks(chunks []models.DocumentChunk) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(chunks)
	if err != nil {
		return err
	}
	return os.WriteFile(s.chunksPath(), data, 0o644)
}
