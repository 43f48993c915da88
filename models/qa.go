package models

import "time"

// QAEntry is a curated question/answer pair used by the similarity lookup
// strategy. Entries are immutable once indexed; the Domain tag must map to
// one of the fixed categories (NormalizeCategory handles stray labels).
type QAEntry struct {
	ID       string    `json:"id" bson:"_id,omitempty"`
	Question string    `json:"question" bson:"question"`
	Answer   string    `json:"answer" bson:"answer"`
	Domain   Category  `json:"domain" bson:"domain"`
	Source   string    `json:"source,omitempty" bson:"source,omitempty"`
	AddedAt  time.Time `json:"added_at,omitempty" bson:"added_at,omitempty"`
}

// UnresolvedQuery is a knowledge gap: a query no strategy answered
// confidently, queued for review and potential promotion into the QA corpus.
type UnresolvedQuery struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	Query         string    `json:"query" bson:"query"`
	Category      Category  `json:"category" bson:"category"`
	LookupScore   float64   `json:"lookup_score" bson:"lookup_score"`
	RAGConfidence float64   `json:"rag_confidence" bson:"rag_confidence"`
	Status        string    `json:"status" bson:"status"` // unresolved | promoted
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}
