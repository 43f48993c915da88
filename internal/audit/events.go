package audit

import "college-chatbot-platform/models"

// EventType tags each audit record with its variant.
type EventType string

const (
	EventRoutingDecision  EventType = "ROUTING_DECISION"
	EventRetrievalQuality EventType = "RETRIEVAL_QUALITY"
	EventAnswerGeneration EventType = "ANSWER_GENERATION"
	EventAnswerRejection  EventType = "ANSWER_REJECTION"
	EventError            EventType = "ERROR"
	EventUserFeedback     EventType = "USER_FEEDBACK"
	EventLatency          EventType = "LATENCY"
)

// Event is implemented by every audit record variant. Each variant is a
// closed struct so records cannot silently grow ad-hoc fields.
type Event interface {
	Kind() EventType
	QueryRef() string
}

// RoutingDecision records which strategy chain was selected for a query
// and why.
type RoutingDecision struct {
	QueryID    string            `json:"query_id"`
	Query      string            `json:"query"`
	Category   models.Category   `json:"category"`
	Confidence float64           `json:"classifier_confidence"`
	Chain      []models.Strategy `json:"chain"`
	Forced     bool              `json:"forced"`
	Reason     string            `json:"reason"`
}

func (e RoutingDecision) Kind() EventType  { return EventRoutingDecision }
func (e RoutingDecision) QueryRef() string { return e.QueryID }

// RetrievalQuality records how well a retrieval step scored against its
// acceptance threshold.
type RetrievalQuality struct {
	QueryID    string          `json:"query_id"`
	Strategy   models.Strategy `json:"strategy"`
	TopScore   float64         `json:"top_score"`
	NumResults int             `json:"num_results"`
	Threshold  float64         `json:"threshold"`
	Accepted   bool            `json:"accepted"`
}

func (e RetrievalQuality) Kind() EventType  { return EventRetrievalQuality }
func (e RetrievalQuality) QueryRef() string { return e.QueryID }

// AnswerGeneration records a confident answer leaving the pipeline.
type AnswerGeneration struct {
	QueryID       string          `json:"query_id"`
	Strategy      models.Strategy `json:"strategy"`
	Confidence    float64         `json:"confidence"`
	ResponseChars int             `json:"response_chars"`
	Sources       []string        `json:"sources,omitempty"`
}

func (e AnswerGeneration) Kind() EventType  { return EventAnswerGeneration }
func (e AnswerGeneration) QueryRef() string { return e.QueryID }

// AnswerRejection records a strategy declining to answer, with the
// confidence it reached and the threshold it missed.
type AnswerRejection struct {
	QueryID    string          `json:"query_id"`
	Strategy   models.Strategy `json:"strategy"`
	Confidence float64         `json:"confidence"`
	Threshold  float64         `json:"threshold"`
	Reason     string          `json:"reason"`
}

func (e AnswerRejection) Kind() EventType  { return EventAnswerRejection }
func (e AnswerRejection) QueryRef() string { return e.QueryID }

// ErrorEvent records an internal failure that was converted into a
// user-facing fallback.
type ErrorEvent struct {
	QueryID string `json:"query_id"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (e ErrorEvent) Kind() EventType  { return EventError }
func (e ErrorEvent) QueryRef() string { return e.QueryID }

// UserFeedback records a thumbs up/down submitted after an answer.
type UserFeedback struct {
	QueryID string `json:"query_id"`
	Helpful bool   `json:"helpful"`
	Comment string `json:"comment,omitempty"`
}

func (e UserFeedback) Kind() EventType  { return EventUserFeedback }
func (e UserFeedback) QueryRef() string { return e.QueryID }

// Latency records end-to-end and per-stage timings for a query.
type Latency struct {
	QueryID string           `json:"query_id"`
	TotalMS int64            `json:"total_ms"`
	Stages  map[string]int64 `json:"stages,omitempty"`
}

func (e Latency) Kind() EventType  { return EventLatency }
func (e Latency) QueryRef() string { return e.QueryID }
