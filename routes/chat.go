package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/models"
	"college-chatbot-platform/services"
	"college-chatbot-platform/utils"
)

// SetupChatRoutes wires the public chat API: the main chat endpoint,
// trending-question stats and answer feedback.
func SetupChatRoutes(router *gin.Engine, orchestrator *services.Orchestrator, stats *services.StatsService, trail audit.Trail) {
	router.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Message is required and must be at most 2000 characters", gin.H{"error": err.Error()})
			return
		}

		qc := orchestrator.HandleQuery(c.Request.Context(), req.Message, req.History)

		c.JSON(http.StatusOK, models.ChatResponse{
			Response:  qc.Response,
			QueryID:   qc.QueryID,
			LatencyMS: qc.LatencyMS(),
			Timestamp: time.Now(),
		})
	})

	router.GET("/stats/top", func(c *gin.Context) {
		queries := stats.TopQueries(c.Request.Context(), 4)
		c.JSON(http.StatusOK, gin.H{"top_queries": queries})
	})

	router.POST("/feedback", func(c *gin.Context) {
		var req models.FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "query_id and helpful are required", gin.H{"error": err.Error()})
			return
		}

		trail.Record(audit.UserFeedback{
			QueryID: req.QueryID,
			Helpful: req.Helpful,
			Comment: req.Comment,
		})

		c.JSON(http.StatusOK, gin.H{"message": "feedback recorded"})
	})
}
