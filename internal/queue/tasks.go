package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"college-chatbot-platform/internal/corpus"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/models"
	"college-chatbot-platform/services"
)

const (
	TaskReevaluateGaps = "knowledge:reevaluate"
	TaskRebuildIndex   = "index:rebuild"
)

type RebuildIndexPayload struct {
	// Target is a domain key ("financial", "admissions", ...) for a QA
	// lookup index, or "documents" for the RAG document index.
	Target string `json:"target"`
}

// NewReevaluateGapsTask queues a knowledge-gap re-evaluation pass.
func NewReevaluateGapsTask() *asynq.Task {
	return asynq.NewTask(
		TaskReevaluateGaps,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("low"),
	)
}

// NewRebuildIndexTask queues a rebuild of one vector index.
func NewRebuildIndexTask(target string) (*asynq.Task, error) {
	payload, err := json.Marshal(RebuildIndexPayload{Target: target})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskRebuildIndex,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor handles background jobs: index rebuilds and
// knowledge-gap re-evaluation.
type TaskProcessor struct {
	qa      corpus.QAStore
	docs    corpus.DocumentStore
	gaps    *services.KnowledgeGapService
	lookup  *services.LookupService
	rag     *services.RAGService
	chunker *services.Chunker
}

func NewTaskProcessor(qa corpus.QAStore, docs corpus.DocumentStore, gaps *services.KnowledgeGapService, lookup *services.LookupService, rag *services.RAGService, chunker *services.Chunker) *TaskProcessor {
	return &TaskProcessor{
		qa:      qa,
		docs:    docs,
		gaps:    gaps,
		lookup:  lookup,
		rag:     rag,
		chunker: chunker,
	}
}

// ReevaluateGaps runs the knowledge updater: every open gap is searched
// against the document index and promoted when it clears the threshold.
func (p *TaskProcessor) ReevaluateGaps(ctx context.Context, t *asynq.Task) error {
	result, err := p.gaps.Reevaluate(ctx)
	if err != nil {
		return err
	}

	logger.Info("Knowledge gap re-evaluation complete",
		"evaluated", result.Evaluated,
		"promoted", result.Promoted,
		"remaining", result.Remaining)
	return nil
}

// RebuildIndex rebuilds one vector index from the corpus store.
func (p *TaskProcessor) RebuildIndex(ctx context.Context, t *asynq.Task) error {
	var payload RebuildIndexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Index rebuild started", "target", payload.Target)

	if payload.Target == "documents" {
		docs, err := p.docs.ListDocuments(ctx)
		if err != nil {
			return err
		}
		return p.rag.Rebuild(ctx, docs, p.chunker)
	}

	domain := models.NormalizeCategory(payload.Target)
	entries, err := p.qa.ListByDomain(ctx, domain)
	if err != nil {
		return err
	}
	return p.lookup.Rebuild(ctx, domain, entries)
}

// Mux returns the task multiplexer wiring task types to handlers.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReevaluateGaps, p.ReevaluateGaps)
	mux.HandleFunc(TaskRebuildIndex, p.RebuildIndex)
	return mux
}
