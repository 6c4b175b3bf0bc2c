package router

import (
	"github.com/vidsum/orchestrator/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the summarize/feedback surface (spec §6).
func RegisterRoutes(engine *gin.Engine, summarize *handler.SummarizeHandler, feedback *handler.FeedbackHandler) {
	engine.POST("/summarize/:vid", summarize.Summarize)
	engine.POST("/feedback/:vid", feedback.Feedback)
}
