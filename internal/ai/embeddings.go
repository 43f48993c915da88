package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Embed returns an embedding vector for the given text using the
// configured embedding model (text-embedding-004 by default).
func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	model := gc.client.EmbeddingModel(gc.embeddingName)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}

	// The embedding endpoint reports no usage metadata; estimate from
	// the input text.
	gc.recordUsage(ctx, estimateTokens(text), 1)

	// genai SDK returns []float32 for Embedding.Values
	return resp.Embedding.Values, nil
}

// EmbedBatch embeds texts one by one. The batch endpoint is not used so
// partial failures surface with the offending text's position.
func EmbedBatch(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding %d of %d failed: %w", i+1, len(texts), err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
