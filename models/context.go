package models

import (
	"time"

	"github.com/google/uuid"
)

// Strategy identifies one of the three answer-producing strategies.
type Strategy string

const (
	StrategyRules  Strategy = "rules"    // deterministic rule matcher
	StrategyLookup Strategy = "lookup"   // similarity lookup over curated QA pairs
	StrategyRAG    Strategy = "rag"      // retrieval-augmented generation
	StrategyNone   Strategy = "none"     // no strategy answered (rejected/fallback)
)

// ValidationResult records the outcome of the validation stage.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
	// Message is the user-facing rejection text when Valid is false.
	Message string `json:"message,omitempty"`
}

// ScopeReason enumerates scope-guard outcomes.
type ScopeReason string

const (
	ScopeGreeting        ScopeReason = "greeting"
	ScopeCollege         ScopeReason = "college_scope"
	ScopeOut             ScopeReason = "out_of_scope"
	ScopeProgrammingOut  ScopeReason = "programming_out_of_scope"
	ScopeNeutralAllow    ScopeReason = "neutral_allow"
)

// ScopeResult records the outcome of the scope-guard stage.
type ScopeResult struct {
	InScope bool        `json:"in_scope"`
	Reason  ScopeReason `json:"reason"`
}

// ClassifierResult records the classifier stage output.
type ClassifierResult struct {
	Category      Category             `json:"category"`
	Confidence    float64              `json:"confidence"`
	Probabilities map[Category]float64 `json:"probabilities"`
}

// StrategyAttempt records a single strategy execution inside a routing
// decision. Attempts are append-only once recorded.
type StrategyAttempt struct {
	Strategy   Strategy `json:"strategy"`
	Confident  bool     `json:"confident"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
}

// RoutingDecision records which strategies were attempted, in what order,
// and why. It is never mutated after the pipeline finishes.
type RoutingDecision struct {
	Chain    []Strategy        `json:"chain"`
	Forced   bool              `json:"forced"` // deterministic-only override fired
	Reason   string            `json:"reason"`
	Attempts []StrategyAttempt `json:"attempts"`
}

// QueryContext is created once per incoming query and mutated additively
// as the pipeline advances. It is read once at the end for audit logging,
// then discarded.
type QueryContext struct {
	QueryID    string
	Query      string
	StartTime  time.Time
	Validation *ValidationResult
	Scope      *ScopeResult
	Classifier *ClassifierResult
	Routing    *RoutingDecision

	AnsweredBy      Strategy
	FinalConfidence float64
	Response        string
	Err             error

	StageTimes map[string]int64 // stage name -> duration in ms
}

// NewQueryContext creates a context with a short unique id, mirroring the
// 8-char query ids used in the audit trail.
func NewQueryContext(query string) *QueryContext {
	return &QueryContext{
		QueryID:    uuid.NewString()[:8],
		Query:      query,
		StartTime:  time.Now(),
		AnsweredBy: StrategyNone,
		StageTimes: make(map[string]int64),
	}
}

// RecordStage stores the elapsed duration for a named pipeline stage.
func (qc *QueryContext) RecordStage(name string, start time.Time) {
	qc.StageTimes[name] = time.Since(start).Milliseconds()
}

// LatencyMS returns the total elapsed time since the context was created.
func (qc *QueryContext) LatencyMS() int64 {
	return time.Since(qc.StartTime).Milliseconds()
}
