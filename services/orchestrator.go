package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/classifier"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/internal/telemetry"
	"college-chatbot-platform/models"
)

const outOfScopeResponse = "I can only help with college administrative questions.\n\n" +
	"I'm designed to answer questions about:\n" +
	"- Admissions, eligibility, application documents\n" +
	"- Fees, scholarships, financial aid\n" +
	"- Academic programs, courses, syllabus\n" +
	"- Exams, results, revaluation, timetable\n" +
	"- Hostel, mess, transport, campus facilities\n" +
	"- Bonafide, NOC, certificates, ID cards\n" +
	"- Placements, internships, training\n\n" +
	"Please ask a question related to these topics, or contact student services."

const finalFallbackResponse = "I couldn't find a reliable answer to your question. " +
	"Please contact student services or the college office for assistance. " +
	"Your question has been recorded so our knowledge base can be improved."

const criticalErrorResponse = "A critical error occurred. Please try again or contact support."

// nominal audit confidence for a rule match; the matcher itself is
// binary (rule fired or not).
const ruleNominalConfidence = 0.9

// ClassifierBands are the confidence cut points for trusting the
// classifier's category. At or above High the category is firm; between
// Mid and High it is a working hypothesis; below Mid it is ignored and
// the query walks the general chain instead.
type ClassifierBands struct {
	High float64
	Mid  float64
}

func defaultClassifierBands() ClassifierBands {
	return ClassifierBands{High: 0.75, Mid: 0.45}
}

// Orchestrator sequences the pipeline: validate, scope-check,
// classify, route, then walk the strategy chain until one answers
// confidently. All collaborators are injected so tests can substitute
// fakes.
type Orchestrator struct {
	validator  *Validator
	scope      *ScopeGuard
	classifier classifier.Classifier
	rules      *RuleMatcher
	lookup     *LookupService
	rag        *RAGService
	gaps       *KnowledgeGapService
	stats      *StatsService // nil when Redis is not configured
	trail      audit.Trail
	metrics    *telemetry.Metrics // nil in tests
	routing    RoutingTable
	bands      ClassifierBands
	timeout    time.Duration
}

type OrchestratorDeps struct {
	Validator  *Validator
	Scope      *ScopeGuard
	Classifier classifier.Classifier
	Rules      *RuleMatcher
	Lookup     *LookupService
	RAG        *RAGService
	Gaps       *KnowledgeGapService
	Stats      *StatsService
	Trail      audit.Trail
	Metrics    *telemetry.Metrics
	Routing    RoutingTable
	Bands      ClassifierBands
	Timeout    time.Duration
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Routing == nil {
		deps.Routing = DefaultRoutingTable()
	}
	if deps.Bands == (ClassifierBands{}) {
		deps.Bands = defaultClassifierBands()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 30 * time.Second
	}
	return &Orchestrator{
		validator:  deps.Validator,
		scope:      deps.Scope,
		classifier: deps.Classifier,
		rules:      deps.Rules,
		lookup:     deps.Lookup,
		rag:        deps.RAG,
		gaps:       deps.Gaps,
		stats:      deps.Stats,
		trail:      deps.Trail,
		metrics:    deps.Metrics,
		routing:    deps.Routing,
		bands:      deps.Bands,
		timeout:    deps.Timeout,
	}
}

// HandleQuery runs the full pipeline for one query. It always returns
// a usable QueryContext with a response; no error ever escapes to the
// caller.
func (o *Orchestrator) HandleQuery(ctx context.Context, query string, history []models.HistoryTurn) (qc *models.QueryContext) {
	qc = models.NewQueryContext(query)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Critical orchestrator failure", "query_id", qc.QueryID, "panic", fmt.Sprint(r))
			o.trail.Record(audit.ErrorEvent{
				QueryID: qc.QueryID,
				Stage:   "orchestrator",
				Message: fmt.Sprint(r),
			})
			qc.Response = criticalErrorResponse
			qc.Err = fmt.Errorf("orchestrator panic: %v", r)
		}

		o.trail.Record(audit.Latency{
			QueryID: qc.QueryID,
			TotalMS: qc.LatencyMS(),
			Stages:  qc.StageTimes,
		})
	}()

	logger.Info("Query received", "query_id", qc.QueryID, "query", query, "history_turns", len(history))

	// Greetings short-circuit before validation: a bare "hi" would
	// otherwise trip the minimum-length check.
	if o.scope.IsGreeting(query) {
		logger.Info("Greeting short-circuit", "query_id", qc.QueryID)
		qc.Scope = &models.ScopeResult{InScope: true, Reason: models.ScopeGreeting}
		o.trail.Record(audit.RoutingDecision{
			QueryID: qc.QueryID,
			Query:   query,
			Reason:  "greeting",
		})
		qc.Response = o.greetingResponse(ctx)
		return qc
	}

	// Stage 1: validation
	stageStart := time.Now()
	validation := o.validator.Validate(query)
	qc.Validation = &validation
	qc.RecordStage("validation", stageStart)

	if !validation.Valid {
		logger.Info("Query failed validation", "query_id", qc.QueryID, "reason", validation.Reason)
		o.trail.Record(audit.RoutingDecision{
			QueryID: qc.QueryID,
			Query:   query,
			Reason:  "validation failed: " + validation.Reason,
		})
		if o.metrics != nil {
			o.metrics.RecordRejected(validation.Reason)
		}
		qc.Response = validation.Message
		return qc
	}

	// Stage 2: scope check
	stageStart = time.Now()
	scope := o.scope.CheckScope(query)
	qc.Scope = &scope
	qc.RecordStage("scope_check", stageStart)

	if !scope.InScope {
		logger.Info("Query out of scope", "query_id", qc.QueryID, "reason", scope.Reason)
		o.trail.Record(audit.RoutingDecision{
			QueryID: qc.QueryID,
			Query:   query,
			Reason:  "out of scope: " + string(scope.Reason),
		})
		if o.metrics != nil {
			o.metrics.RecordRejected(string(scope.Reason))
		}
		qc.Response = outOfScopeResponse
		return qc
	}

	// Stage 3: classification
	stageStart = time.Now()
	classification := o.classifier.Classify(query)
	qc.Classifier = &classification
	qc.RecordStage("classification", stageStart)

	logger.Info("Query classified",
		"query_id", qc.QueryID,
		"category", classification.Category,
		"confidence", classification.Confidence)

	// Stage 4: routing decision
	stageStart = time.Now()
	routing := o.route(query, classification)
	qc.Routing = &routing
	qc.RecordStage("routing", stageStart)

	o.trail.Record(audit.RoutingDecision{
		QueryID:    qc.QueryID,
		Query:      query,
		Category:   classification.Category,
		Confidence: classification.Confidence,
		Chain:      routing.Chain,
		Forced:     routing.Forced,
		Reason:     routing.Reason,
	})

	// Stage 5: strategy execution
	stageStart = time.Now()
	o.executeChain(ctx, qc, history)
	qc.RecordStage("answer_generation", stageStart)

	if qc.AnsweredBy == models.StrategyNone {
		o.handleExhaustedChain(ctx, qc)
	} else if o.metrics != nil {
		o.metrics.RecordAnswered(string(qc.AnsweredBy))
	}

	if o.stats != nil {
		o.stats.IncrementQuery(ctx, query)
	}

	logger.Info("Query complete",
		"query_id", qc.QueryID,
		"answered_by", qc.AnsweredBy,
		"confidence", qc.FinalConfidence,
		"latency_ms", qc.LatencyMS())

	return qc
}

// route resolves the strategy chain for a classified query. The
// forced-deterministic predicate overrides everything: exact facts go
// to the rule matcher with no fallback. A classification below the mid
// confidence band is not trusted to pick a chain.
func (o *Orchestrator) route(query string, classification models.ClassifierResult) models.RoutingDecision {
	if o.scope.RequiresDeterministic(query) {
		return models.RoutingDecision{
			Chain:  []models.Strategy{models.StrategyRules},
			Forced: true,
			Reason: "deterministic-only topic (location/contact/hours)",
		}
	}

	switch {
	case classification.Confidence >= o.bands.High:
		return models.RoutingDecision{
			Chain: o.routing.ChainFor(classification.Category),
			Reason: fmt.Sprintf("category %q chain (high classifier confidence %.4f)",
				classification.Category, classification.Confidence),
		}
	case classification.Confidence >= o.bands.Mid:
		return models.RoutingDecision{
			Chain: o.routing.ChainFor(classification.Category),
			Reason: fmt.Sprintf("category %q chain (mid classifier confidence %.4f)",
				classification.Category, classification.Confidence),
		}
	default:
		return models.RoutingDecision{
			Chain: o.routing.ChainFor(models.CategoryGeneral),
			Reason: fmt.Sprintf("general chain (classifier confidence %.4f below %.2f)",
				classification.Confidence, o.bands.Mid),
		}
	}
}

// executeChain walks the resolved chain, stopping at the first
// confident answer. A fault inside one strategy is isolated so the
// next strategy still runs.
func (o *Orchestrator) executeChain(ctx context.Context, qc *models.QueryContext, history []models.HistoryTurn) {
	for _, strategy := range qc.Routing.Chain {
		attempt := o.executeStrategy(ctx, qc, strategy, history)
		qc.Routing.Attempts = append(qc.Routing.Attempts, attempt)

		if o.metrics != nil {
			o.metrics.RecordStrategyAttempt(string(strategy), attempt.Confident)
		}

		if attempt.Confident {
			return
		}
	}
}

func (o *Orchestrator) executeStrategy(ctx context.Context, qc *models.QueryContext, strategy models.Strategy, history []models.HistoryTurn) (attempt models.StrategyAttempt) {
	attempt = models.StrategyAttempt{Strategy: strategy}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Strategy panicked", "query_id", qc.QueryID, "strategy", strategy, "panic", fmt.Sprint(r))
			o.trail.Record(audit.ErrorEvent{
				QueryID: qc.QueryID,
				Stage:   string(strategy),
				Message: fmt.Sprint(r),
			})
			attempt.Confident = false
			attempt.Reason = "strategy fault"
		}
	}()

	switch strategy {
	case models.StrategyRules:
		response := o.rules.Match(qc.Query)
		if response != RuleNoMatch && strings.TrimSpace(response) != "" {
			attempt.Confident = true
			attempt.Confidence = ruleNominalConfidence
			o.acceptAnswer(qc, strategy, response, ruleNominalConfidence)
			o.trail.Record(audit.AnswerGeneration{
				QueryID:       qc.QueryID,
				Strategy:      strategy,
				Confidence:    ruleNominalConfidence,
				ResponseChars: len(response),
			})
		} else {
			attempt.Reason = "no matching rule"
			o.trail.Record(audit.AnswerRejection{
				QueryID:  qc.QueryID,
				Strategy: strategy,
				Reason:   "no matching rule",
			})
		}

	case models.StrategyLookup:
		var hint models.Category
		if qc.Classifier != nil {
			hint = qc.Classifier.Category
		}
		answer := o.lookup.Answer(ctx, qc.Query, hint, qc.QueryID)
		attempt.Confidence = answer.Similarity
		if answer.Confident {
			attempt.Confident = true
			o.acceptAnswer(qc, strategy, answer.Answer, answer.Similarity)
			var sources []string
			if answer.Matched != nil {
				sources = []string{answer.Matched.Question}
			}
			o.trail.Record(audit.AnswerGeneration{
				QueryID:       qc.QueryID,
				Strategy:      strategy,
				Confidence:    answer.Similarity,
				ResponseChars: len(answer.Answer),
				Sources:       sources,
			})
		} else {
			attempt.Reason = "similarity below threshold"
			o.trail.Record(audit.AnswerRejection{
				QueryID:    qc.QueryID,
				Strategy:   strategy,
				Confidence: answer.Similarity,
				Threshold:  o.lookup.cfg.HighThreshold,
				Reason:     "similarity below threshold",
			})
		}

	case models.StrategyRAG:
		answer := o.rag.Answer(ctx, qc.Query, history, qc.QueryID)
		attempt.Confidence = answer.Confidence
		if answer.Confident {
			attempt.Confident = true
			o.acceptAnswer(qc, strategy, answer.Response, answer.Confidence)
		} else {
			attempt.Reason = "retrieval below threshold"
		}

	default:
		attempt.Reason = "unknown strategy"
	}

	return attempt
}

func (o *Orchestrator) acceptAnswer(qc *models.QueryContext, strategy models.Strategy, response string, confidence float64) {
	qc.AnsweredBy = strategy
	qc.Response = response
	qc.FinalConfidence = confidence
}

// handleExhaustedChain produces the final fallback and queues the
// query for knowledge-gap review.
func (o *Orchestrator) handleExhaustedChain(ctx context.Context, qc *models.QueryContext) {
	logger.Info("Strategy chain exhausted", "query_id", qc.QueryID)

	if o.metrics != nil {
		o.metrics.RecordFallback()
	}

	var lookupScore, ragConfidence float64
	for _, attempt := range qc.Routing.Attempts {
		switch attempt.Strategy {
		case models.StrategyLookup:
			lookupScore = attempt.Confidence
		case models.StrategyRAG:
			ragConfidence = attempt.Confidence
		}
	}

	var category models.Category
	if qc.Classifier != nil {
		category = qc.Classifier.Category
	}

	if o.gaps != nil {
		o.gaps.RecordGap(ctx, models.UnresolvedQuery{
			Query:         qc.Query,
			Category:      category,
			LookupScore:   lookupScore,
			RAGConfidence: ragConfidence,
		})
	}

	qc.Response = finalFallbackResponse
}

// greetingResponse returns the canned greeting, enriched with the
// currently trending questions as suggestions.
func (o *Orchestrator) greetingResponse(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("Hello! I'm the college assistant. Ask me about admissions, fees, exams, hostel and campus life.")

	if o.stats != nil {
		top := o.stats.TopQueries(ctx, 4)
		if len(top) > 0 {
			b.WriteString("\n\nPopular questions:\n")
			for _, q := range top {
				b.WriteString("- " + q + "\n")
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
