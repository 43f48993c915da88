package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/corpus"
	"college-chatbot-platform/models"
)

type orchestratorFixture struct {
	orch     *Orchestrator
	embedder *stubEmbedder
	trail    *audit.MemoryTrail
	store    *corpus.MemoryStore
	lookup   *LookupService
}

func newTestOrchestrator(t *testing.T) *orchestratorFixture {
	t.Helper()

	embedder := newStubEmbedder(3)
	trail := audit.NewMemoryTrail()
	lookup := newTestLookup(t, embedder, trail)
	rag := newTestRAG(t, embedder, &stubGenerator{}, trail)
	store := corpus.NewMemoryStore()
	gaps := NewKnowledgeGapService(store, store, rag, lookup, 0.75)

	rules := NewRuleMatcher([]Rule{{
		Patterns: []string{"* CONTACT *"},
		Template: "Call the college office at 0123-456789.",
	}})

	orch := NewOrchestrator(OrchestratorDeps{
		Validator:  NewValidator(),
		Scope:      NewScopeGuard(),
		Classifier: stubClassifier{category: models.CategoryFinancial, confidence: 0.9},
		Rules:      rules,
		Lookup:     lookup,
		RAG:        rag,
		Gaps:       gaps,
		Trail:      trail,
	})

	return &orchestratorFixture{orch: orch, embedder: embedder, trail: trail, store: store, lookup: lookup}
}

func TestHandleQueryAnsweredByLookup(t *testing.T) {
	f := newTestOrchestrator(t)

	entries := []models.QAEntry{{
		Question: "What is the tuition fee?",
		Answer:   "Tuition is 80,000 per year.",
		Domain:   models.CategoryFinancial,
	}}
	seedDomain(t, f.lookup, models.CategoryFinancial, entries, [][]float32{{1, 0, 0}})
	f.embedder.set("What is the tuition fee?", []float32{1, 0, 0})

	qc := f.orch.HandleQuery(context.Background(), "What is the tuition fee?", nil)

	require.Equal(t, models.StrategyLookup, qc.AnsweredBy)
	require.Equal(t, "Tuition is 80,000 per year.", qc.Response)
	require.InDelta(t, 1.0, qc.FinalConfidence, 1e-9)
	require.False(t, qc.Routing.Forced)
	require.Len(t, qc.Routing.Attempts, 1)

	require.Len(t, f.trail.ByKind(audit.EventRoutingDecision), 1)
	require.Len(t, f.trail.ByKind(audit.EventAnswerGeneration), 1)
	require.Len(t, f.trail.ByKind(audit.EventLatency), 1)
}

func TestHandleQueryCrisisRejection(t *testing.T) {
	f := newTestOrchestrator(t)

	qc := f.orch.HandleQuery(context.Background(), "I want to kill myself", nil)

	require.Equal(t, models.StrategyNone, qc.AnsweredBy)
	require.Contains(t, qc.Response, "Crisis Support")
	require.False(t, qc.Validation.Valid)

	// Rejected queries never reach a strategy.
	require.Empty(t, f.trail.ByKind(audit.EventAnswerGeneration))
	decisions := f.trail.ByKind(audit.EventRoutingDecision)
	require.Len(t, decisions, 1)
	require.True(t, strings.HasPrefix(decisions[0].(audit.RoutingDecision).Reason, "validation failed"))
}

func TestHandleQueryGreeting(t *testing.T) {
	f := newTestOrchestrator(t)

	qc := f.orch.HandleQuery(context.Background(), "Hello!", nil)

	require.Equal(t, models.StrategyNone, qc.AnsweredBy)
	require.Contains(t, qc.Response, "college assistant")
	require.Equal(t, models.ScopeGreeting, qc.Scope.Reason)
}

func TestHandleQueryOutOfScope(t *testing.T) {
	f := newTestOrchestrator(t)

	qc := f.orch.HandleQuery(context.Background(), "Who won the IPL match yesterday?", nil)

	require.Equal(t, models.StrategyNone, qc.AnsweredBy)
	require.Equal(t, outOfScopeResponse, qc.Response)
}

func TestHandleQueryForcedDeterministic(t *testing.T) {
	f := newTestOrchestrator(t)

	qc := f.orch.HandleQuery(context.Background(), "What is the contact number of the office?", nil)

	require.True(t, qc.Routing.Forced)
	require.Equal(t, []models.Strategy{models.StrategyRules}, qc.Routing.Chain)
	require.Equal(t, models.StrategyRules, qc.AnsweredBy)
	require.Equal(t, "Call the college office at 0123-456789.", qc.Response)
	require.InDelta(t, ruleNominalConfidence, qc.FinalConfidence, 1e-9)
}

func TestHandleQueryLowClassifierConfidenceRoutesGeneral(t *testing.T) {
	f := newTestOrchestrator(t)
	f.orch.classifier = stubClassifier{category: models.CategoryFinancial, confidence: 0.2}

	qc := f.orch.HandleQuery(context.Background(), "What is the exam fee refund policy?", nil)

	// Below the mid band the category hint is ignored; the query walks
	// the general chain instead of the financial one.
	require.Equal(t, []models.Strategy{models.StrategyRules, models.StrategyLookup, models.StrategyRAG}, qc.Routing.Chain)
	require.Contains(t, qc.Routing.Reason, "general chain")
}

func TestRouteConfidenceBands(t *testing.T) {
	f := newTestOrchestrator(t)

	high := f.orch.route("question about fees", models.ClassifierResult{Category: models.CategoryFinancial, Confidence: 0.9})
	require.Contains(t, high.Reason, "high classifier confidence")

	mid := f.orch.route("question about fees", models.ClassifierResult{Category: models.CategoryFinancial, Confidence: 0.5})
	require.Contains(t, mid.Reason, "mid classifier confidence")
	require.Equal(t, high.Chain, mid.Chain)
}

func TestHandleQueryExhaustedChainRecordsGap(t *testing.T) {
	f := newTestOrchestrator(t)

	// Lookup clears the minimum but not the confidence bar, rules have
	// no matching pattern and the document index is empty, so the chain
	// runs dry.
	entries := []models.QAEntry{{
		Question: "unrelated question",
		Answer:   "unrelated answer",
		Domain:   models.CategoryFinancial,
	}}
	seedDomain(t, f.lookup, models.CategoryFinancial, entries, [][]float32{{1, 0, 0}})

	query := "What is the exam fee refund policy?"
	f.embedder.set(query, []float32{0, 0, 0}) // d=1 -> sim 0.5

	qc := f.orch.HandleQuery(context.Background(), query, nil)

	require.Equal(t, models.StrategyNone, qc.AnsweredBy)
	require.Equal(t, finalFallbackResponse, qc.Response)
	require.Len(t, qc.Routing.Attempts, 3)

	for _, stage := range []string{"validation", "scope_check", "classification", "routing", "answer_generation"} {
		require.Contains(t, qc.StageTimes, stage)
	}

	gaps, err := f.store.ListUnresolved(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	require.Equal(t, query, gaps[0].Query)
	require.Equal(t, models.CategoryFinancial, gaps[0].Category)
	require.InDelta(t, 0.5, gaps[0].LookupScore, 1e-9)
}

func TestHandleQuerySurvivesStrategyPanic(t *testing.T) {
	f := newTestOrchestrator(t)

	// A nil rule matcher makes the rules strategy panic; the orchestrator
	// must isolate it and still produce the fallback.
	f.orch.rules = nil

	qc := f.orch.HandleQuery(context.Background(), "What is the contact number of the office?", nil)

	require.Equal(t, models.StrategyNone, qc.AnsweredBy)
	require.Equal(t, finalFallbackResponse, qc.Response)
	require.NotEmpty(t, f.trail.ByKind(audit.EventError))
}
