// Package corpus persists the curated knowledge the answer strategies
// draw from: QA pairs, long-form documents, and the unresolved queries
// queued for review.
package corpus

import (
	"context"
	"errors"

	"college-chatbot-platform/models"
)

var ErrNotFound = errors.New("corpus: not found")

// QAStore holds curated question/answer pairs, partitioned by domain.
type QAStore interface {
	ListByDomain(ctx context.Context, domain models.Category) ([]models.QAEntry, error)
	ListAll(ctx context.Context) ([]models.QAEntry, error)
	// Insert adds a new entry. Duplicate questions are rejected.
	Insert(ctx context.Context, entry models.QAEntry) error
}

// DocumentStore holds long-form source documents for the RAG strategy.
// Ingestion is idempotent: a source re-imported with unchanged content
// is skipped, and a changed source replaces the stored document.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	// InsertDocument stores a document, replacing any existing one with
	// the same source.
	InsertDocument(ctx context.Context, doc models.Document) error
	// HasIngested reports whether a source with this exact content hash
	// was already imported.
	HasIngested(ctx context.Context, source, contentHash string) (bool, error)
	MarkIngested(ctx context.Context, source, contentHash string) error
}

// GapStore holds unresolved queries. Recording the same query text
// twice refreshes the existing record instead of duplicating it.
type GapStore interface {
	Record(ctx context.Context, gap models.UnresolvedQuery) error
	ListUnresolved(ctx context.Context, limit int) ([]models.UnresolvedQuery, error)
	Get(ctx context.Context, id string) (models.UnresolvedQuery, error)
	MarkPromoted(ctx context.Context, id string) error
}
