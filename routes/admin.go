package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"college-chatbot-platform/internal/ai"
	"college-chatbot-platform/internal/config"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/internal/queue"
	"college-chatbot-platform/middleware"
	"college-chatbot-platform/services"
	"college-chatbot-platform/utils"
)

// SetupAdminRoutes wires the JWT-protected admin API: index rebuilds,
// knowledge-gap inspection and re-evaluation, and AI usage history.
// Rebuilds and re-evaluation are enqueued as background tasks so the
// request returns immediately.
func SetupAdminRoutes(router *gin.Engine, cfg *config.Config, client *asynq.Client, gaps *services.KnowledgeGapService, db *mongo.Database) {
	admin := router.Group("/admin")
	admin.Use(middleware.RequireAdmin(cfg.AdminJWTSecret))

	admin.POST("/index/rebuild", func(c *gin.Context) {
		var req struct {
			Target string `json:"target" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "target is required (a domain key or \"documents\")", nil)
			return
		}

		task, err := queue.NewRebuildIndexTask(req.Target)
		if err != nil {
			utils.RespondWithInternalError(c, "task_creation_failed", "Failed to create rebuild task")
			return
		}

		info, err := client.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			logger.Error("Failed to enqueue index rebuild", "target", req.Target, "error", err)
			utils.RespondWithInternalError(c, "enqueue_failed", "Failed to enqueue rebuild task")
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message": "rebuild enqueued",
			"target":  req.Target,
			"task_id": info.ID,
		})
	})

	admin.GET("/knowledge-gaps", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		unresolved, err := gaps.ListGaps(c.Request.Context(), limit)
		if err != nil {
			logger.Error("Failed to list knowledge gaps", "error", err)
			utils.RespondWithInternalError(c, "internal_error", "Failed to list knowledge gaps")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"gaps":  unresolved,
			"total": len(unresolved),
		})
	})

	admin.POST("/knowledge-gaps/reevaluate", func(c *gin.Context) {
		info, err := client.EnqueueContext(c.Request.Context(), queue.NewReevaluateGapsTask())
		if err != nil {
			logger.Error("Failed to enqueue gap re-evaluation", "error", err)
			utils.RespondWithInternalError(c, "enqueue_failed", "Failed to enqueue re-evaluation task")
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message": "re-evaluation enqueued",
			"task_id": info.ID,
		})
	})

	admin.GET("/usage", func(c *gin.Context) {
		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

		history, err := ai.GetUsageHistory(c.Request.Context(), db, days)
		if err != nil {
			logger.Error("Failed to read usage history", "error", err)
			utils.RespondWithInternalError(c, "internal_error", "Failed to read usage history")
			return
		}

		c.JSON(http.StatusOK, gin.H{"usage": history})
	})
}
