package models

// Document is a long-form source document for the RAG strategy.
type Document struct {
	Source      string `json:"source" bson:"source"` // filename or URL
	Content     string `json:"content" bson:"content"`
	ContentHash string `json:"content_hash,omitempty" bson:"content_hash,omitempty"`
	DocType     string `json:"doc_type" bson:"doc_type"` // text, pdf, website
}

// DocumentChunk is a contiguous slice of a source document. Chunks from the
// same source tile the document: end_char of chunk i minus start_char of
// chunk i+1 equals the configured overlap (the final chunk may be shorter).
type DocumentChunk struct {
	Text      string `json:"text" bson:"text"`
	Source    string `json:"source" bson:"source"`
	ChunkID   int    `json:"chunk_id" bson:"chunk_id"`
	StartChar int    `json:"start_char" bson:"start_char"`
	EndChar   int    `json:"end_char" bson:"end_char"`
}
