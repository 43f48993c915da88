package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"college-chatbot-platform/internal/ai"
	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/classifier"
	"college-chatbot-platform/internal/config"
	"college-chatbot-platform/internal/corpus"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/internal/telemetry"
	"college-chatbot-platform/internal/vectorindex"
	"college-chatbot-platform/internal/websearch"
	"college-chatbot-platform/middleware"
	"college-chatbot-platform/models"
	"college-chatbot-platform/routes"
	"college-chatbot-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracer("college-chatbot-platform", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdownTracer()
		}
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

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
	warmup := []string{"documents"}
	for _, category := range models.AllCategories {
		warmup = append(warmup, "qa_"+category.DomainKey())
	}
	indices.Warmup(warmup)

	store := corpus.NewMongoStore(db)

	var searcher websearch.Searcher = websearch.NewTavilyClient(cfg.TavilyAPIKey)
	searcher = websearch.NewCachedSearcher(searcher, rdb, time.Duration(cfg.WebCacheTTLSec)*time.Second)

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
	stats := services.NewStatsService(rdb)

	rules, err := services.LoadRuleMatcher(filepath.Join(cfg.DataDir, "rules.json"))
	if err != nil {
		log.Fatal("Failed to load rules:", err)
	}

	routingTable, err := services.LoadRoutingTable(filepath.Join(cfg.DataDir, "routing_table.json"))
	if err != nil {
		log.Fatal("Failed to load routing table:", err)
	}

	orchestrator := services.NewOrchestrator(services.OrchestratorDeps{
		Validator:  services.NewValidator(),
		Scope:      services.NewScopeGuard(),
		Classifier: classifier.LoadOrDegrade(filepath.Join(cfg.DataDir, "classifier_model.json")),
		Rules:      rules,
		Lookup:     lookup,
		RAG:        rag,
		Gaps:       gaps,
		Stats:      stats,
		Trail:      trail,
		Metrics:    metrics,
		Routing:    routingTable,
		Bands: services.ClassifierBands{
			High: cfg.ClassifierHighConfidence,
			Mid:  cfg.ClassifierMidConfidence,
		},
		Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
	})

	asynqOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}
	taskClient := asynq.NewClient(asynqOpt)
	defer taskClient.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	routes.SetupChatRoutes(router, orchestrator, stats, trail)
	routes.SetupAdminRoutes(router, cfg, taskClient, gaps, db)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
