package services

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"college-chatbot-platform/internal/logger"
)

const statsKey = "query_stats"

// Cold-start suggestions shown before any real usage accumulates.
var defaultTopQueries = []string{
	"Is hostel facility available?",
	"What is the admission process?",
	"What is the tuition fee?",
	"Where is the library?",
}

// StatsService tracks query frequency in a Redis sorted set so the
// front-end can surface trending questions. All operations are best
// effort; stats failures never affect answering.
type StatsService struct {
	rdb *redis.Client
}

func NewStatsService(rdb *redis.Client) *StatsService {
	return &StatsService{rdb: rdb}
}

// IncrementQuery bumps the frequency counter for a query. The query is
// lightly normalized (trimmed, first letter capitalized) so trivial
// casing variants aggregate.
func (s *StatsService) IncrementQuery(ctx context.Context, query string) {
	formatted := formatStatsQuery(query)
	if formatted == "" {
		return
	}

	if err := s.rdb.ZIncrBy(ctx, statsKey, 1, formatted).Err(); err != nil {
		logger.Warn("Failed to increment query stats", "error", err)
	}
}

// TopQueries returns the n most frequent queries, falling back to the
// default suggestions when no usage has been recorded yet.
func (s *StatsService) TopQueries(ctx context.Context, n int) []string {
	if n <= 0 {
		n = 4
	}

	queries, err := s.rdb.ZRevRange(ctx, statsKey, 0, int64(n-1)).Result()
	if err != nil {
		logger.Warn("Failed to read query stats", "error", err)
		return defaultTopQueries[:min(n, len(defaultTopQueries))]
	}

	if len(queries) == 0 {
		return defaultTopQueries[:min(n, len(defaultTopQueries))]
	}

	return queries
}

func formatStatsQuery(query string) string {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < 3 {
		return ""
	}
	return strings.ToUpper(trimmed[:1]) + trimmed[1:]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
