package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidsum/orchestrator/internal/domain/repository"
	"github.com/vidsum/orchestrator/pkg/logger"
)

// FeedbackHandler serves the illustrative POST /feedback/{vid} dispatcher
// (SPEC_FULL §12): it only ever increments counters, never reads them back.
type FeedbackHandler struct {
	store repository.FeedbackStore
}

// NewFeedbackHandler builds a FeedbackHandler.
func NewFeedbackHandler(store repository.FeedbackStore) *FeedbackHandler {
	return &FeedbackHandler{store: store}
}

type feedbackRequest struct {
	Good bool `json:"good"`
}

// Feedback increments the good or bad counter for vid by one.
func (h *FeedbackHandler) Feedback(c *gin.Context) {
	vid := c.Param("vid")
	if vid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "vid is required"})
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	good, bad := 0, 1
	if req.Good {
		good, bad = 1, 0
	}

	ctx := c.Request.Context()
	if err := h.store.Increment(ctx, vid, good, bad); err != nil {
		logger.Error(ctx, "feedback increment failed", err, "vid", vid)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "feedback failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
