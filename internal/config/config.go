package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	MongoURI     string
	DBName       string
	GeminiAPIKey string
	Port         string
	GinMode      string
	CORSOrigins  []string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Admin API
	AdminJWTSecret string

	// Models
	GenerationModel string
	EmbeddingModel  string

	// Lookup strategy thresholds
	LookupTopK          int
	LookupHighThreshold float64
	LookupMinThreshold  float64
	DomainBoost         float64

	// RAG strategy thresholds
	RAGTopK               int
	RAGRetrievalThreshold float64
	RAGMinConfidence      float64

	// Classifier confidence bands
	ClassifierHighConfidence float64
	ClassifierMidConfidence  float64

	// Conversation context budget
	MaxContextTurns        int
	MaxContextCharsPerTurn int

	// Document chunking
	ChunkSize    int
	ChunkOverlap int

	// Knowledge gap auto-promotion
	AutoPromoteThreshold float64

	// Web search
	TavilyAPIKey   string
	WebCacheTTLSec int

	// Paths
	IndexDir     string
	DataDir      string
	AuditLogPath string

	// Request handling
	RequestTimeoutSec int
	RateLimitReqs     int
	RateLimitWindow   int

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017/college_chatbot"),
		DBName:       getEnv("DB_NAME", "college_chatbot"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		GenerationModel: getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),

		LookupTopK:          getEnvInt("LOOKUP_TOP_K", 3),
		LookupHighThreshold: getEnvFloat64("LOOKUP_HIGH_THRESHOLD", 0.65),
		LookupMinThreshold:  getEnvFloat64("LOOKUP_MIN_THRESHOLD", 0.45),
		DomainBoost:         getEnvFloat64("DOMAIN_BOOST", 0.1),

		RAGTopK:               getEnvInt("RAG_TOP_K", 5),
		RAGRetrievalThreshold: getEnvFloat64("RAG_RETRIEVAL_THRESHOLD", 1.5),
		RAGMinConfidence:      getEnvFloat64("RAG_MIN_CONFIDENCE", 0.5),

		ClassifierHighConfidence: getEnvFloat64("CLASSIFIER_HIGH_CONFIDENCE", 0.75),
		ClassifierMidConfidence:  getEnvFloat64("CLASSIFIER_MID_CONFIDENCE", 0.45),

		MaxContextTurns:        getEnvInt("MAX_CONTEXT_TURNS", 5),
		MaxContextCharsPerTurn: getEnvInt("MAX_CONTEXT_CHARS_PER_TURN", 500),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 400),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 50),

		AutoPromoteThreshold: getEnvFloat64("AUTO_PROMOTE_THRESHOLD", 0.75),

		TavilyAPIKey:   getEnv("TAVILY_API_KEY", ""),
		WebCacheTTLSec: getEnvInt("WEB_CACHE_TTL", 3600),

		IndexDir:     getEnv("INDEX_DIR", "./storage/indices"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		AuditLogPath: getEnv("AUDIT_LOG_PATH", "./logs/audit_trail.log"),

		RequestTimeoutSec: getEnvInt("REQUEST_TIMEOUT", 30),
		RateLimitReqs:     getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvInt("RATE_LIMIT_WINDOW", 60),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	if cfg.LookupMinThreshold > cfg.LookupHighThreshold {
		return nil, fmt.Errorf("LOOKUP_MIN_THRESHOLD must not exceed LOOKUP_HIGH_THRESHOLD")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
