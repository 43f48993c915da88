package main

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"

	"college-chatbot-platform/internal/ai"
	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/config"
	"college-chatbot-platform/internal/corpus"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/internal/queue"
	"college-chatbot-platform/internal/vectorindex"
	"college-chatbot-platform/internal/websearch"
	"college-chatbot-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GenerationModel, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal("Failed to create Gemini client:", err)
	}
	defer gemini.Close()
	gemini.SetUsageSink(ai.NewMongoUsageSink(db))

	trail, err := audit.NewFileTrail(cfg.AuditLogPath)
	if err != nil {
		log.Fatal("Failed to open audit trail:", err)
	}
	defer trail.Close()

	indices := vectorindex.NewManager(cfg.IndexDir)
	store := corpus.NewMongoStore(db)

	searcher := websearch.NewCachedSearcher(
		websearch.NewTavilyClient(cfg.TavilyAPIKey), rdb,
		time.Duration(cfg.WebCacheTTLSec)*time.Second)

	lookup := services.NewLookupService(gemini, indices, trail, services.LookupConfig{
		TopK:          cfg.LookupTopK,
		HighThreshold: cfg.LookupHighThreshold,
		MinThreshold:  cfg.LookupMinThreshold,
		DomainBoost:   cfg.DomainBoost,
	}, cfg.DataDir)

	rag := services.NewRAGService(gemini, gemini, indices, searcher, trail, services.RAGConfig{
		TopK:                   cfg.RAGTopK,
		RetrievalThreshold:     cfg.RAGRetrievalThreshold,
		MinConfidence:          cfg.RAGMinConfidence,
		MaxContextTurns:        cfg.MaxContextTurns,
		MaxContextCharsPerTurn: cfg.MaxContextCharsPerTurn,
	}, cfg.DataDir)

	gaps := services.NewKnowledgeGapService(store, store, rag, lookup, cfg.AutoPromoteThreshold)

	chunker, err := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking config:", err)
	}

	processor := queue.NewTaskProcessor(store, store, gaps, lookup, rag, chunker)

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Nightly knowledge-gap re-evaluation: promote gaps the document
	// corpus can now answer.
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(1).Day().At("02:00").Do(func() {
		if _, err := client.Enqueue(queue.NewReevaluateGapsTask()); err != nil {
			logger.Error("Failed to enqueue scheduled gap re-evaluation", "error", err)
		}
	})
	scheduler.StartAsync()
	defer scheduler.Stop()

	logger.Info("Worker starting", "concurrency", 20, "queues", "critical(6) default(3) low(1)")

	if err := server.Run(processor.Mux()); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
