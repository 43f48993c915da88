package services

import (
	"fmt"

	"college-chatbot-platform/models"
)

// Chunker splits documents into fixed-size overlapping chunks for the
// retrieval index. Boundaries are purely positional so re-chunking the
// same text always yields identical chunks.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk slices the document into tiles of the configured size. Each
// chunk starts overlap characters before the previous chunk's end; the
// final chunk may be shorter. Empty content yields no chunks.
func (c *Chunker) Chunk(doc models.Document) []models.DocumentChunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap

	var chunks []models.DocumentChunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, models.DocumentChunk{
			Text:      string(runes[start:end]),
			Source:    doc.Source,
			ChunkID:   len(chunks),
			StartChar: start,
			EndChar:   end,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks
}
