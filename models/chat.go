// models/chat.go
package models

import "time"

// HistoryTurn is one prior exchange supplied by the client for
// conversational context.
type HistoryTurn struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

type ChatRequest struct {
	Message string        `json:"message" binding:"required,min=1,max=2000"`
	History []HistoryTurn `json:"history,omitempty"`
}

type ChatResponse struct {
	Response  string    `json:"response"`
	QueryID   string    `json:"query_id"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackRequest records a thumbs up/down on a previous answer.
type FeedbackRequest struct {
	QueryID string `json:"query_id" binding:"required"`
	Helpful bool   `json:"helpful"`
	Comment string `json:"comment,omitempty"`
}
