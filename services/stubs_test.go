package services

import (
	"context"
	"sync"

	"college-chatbot-platform/internal/websearch"
	"college-chatbot-platform/models"
)

// stubEmbedder returns fixed vectors for known texts and a far-away
// default for everything else, so tests control similarity exactly.
type stubEmbedder struct {
	vectors map[string][]float32
	def     []float32
}

func newStubEmbedder(dim int) *stubEmbedder {
	def := make([]float32, dim)
	def[0] = 100 // far from every test vector
	return &stubEmbedder{vectors: make(map[string][]float32), def: def}
}

func (s *stubEmbedder) set(text string, vec []float32) { s.vectors[text] = vec }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.def, nil
}

// stubGenerator returns a canned response and records the prompts it
// was given.
type stubGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

// stubSearcher returns canned web results.
type stubSearcher struct {
	results []websearch.Result
	err     error
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]websearch.Result, error) {
	return s.results, s.err
}

// stubClassifier returns a fixed classification.
type stubClassifier struct {
	category   models.Category
	confidence float64
}

func (s stubClassifier) Classify(string) models.ClassifierResult {
	return models.ClassifierResult{Category: s.category, Confidence: s.confidence}
}
