// Package handler implements the HTTP request handlers.
package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidsum/orchestrator/internal/application/orchestrator"
	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/domain/repository"
	"github.com/vidsum/orchestrator/pkg/logger"
)

// SummarizeHandler serves spec §6's POST /summarize/{vid}.
type SummarizeHandler struct {
	orch *orchestrator.Orchestrator
}

// NewSummarizeHandler builds a SummarizeHandler.
func NewSummarizeHandler(orch *orchestrator.Orchestrator) *SummarizeHandler {
	return &SummarizeHandler{orch: orch}
}

type summarizeRequest struct {
	Chapters     []entity.ChapterHint `json:"chapters"`
	NoTranscript bool                 `json:"no_transcript"`
}

// Summarize answers from the store, streams an in-flight/new run's progress
// over SSE, or reports a negative outcome, per spec §4.10/§6.
func (h *SummarizeHandler) Summarize(c *gin.Context) {
	vid := c.Param("vid")
	if vid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "vid is required"})
		return
	}

	var req summarizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}
	}

	trigger := c.GetHeader("uid")
	if trigger == "" {
		trigger = "anonymous"
	}

	if req.NoTranscript {
		c.JSON(http.StatusOK, entity.SummaryResponse{State: entity.SummaryStateNothing, Chapters: []*entity.Chapter{}})
		return
	}

	ctx := c.Request.Context()
	res, err := h.orch.Summarize(ctx, vid, trigger, req.Chapters)
	if err != nil {
		logger.Error(ctx, "summarize failed", err, "vid", vid)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "summarize failed"})
		return
	}

	switch res.Kind {
	case orchestrator.ResultDone:
		c.JSON(http.StatusOK, res.Response)
	case orchestrator.ResultNothing:
		resp := res.Response
		if resp.Chapters == nil {
			resp.Chapters = []*entity.Chapter{}
		}
		c.JSON(http.StatusOK, resp)
	case orchestrator.ResultSubscribe:
		streamEvents(c, res.Events, res.Cleanup)
	}
}

// streamEvents renders an EventBus channel as spec §6's SSE wire format
// until a close event, channel closure, or client disconnect.
func streamEvents(c *gin.Context, events <-chan repository.Event, cleanup func()) {
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Transfer-Encoding", "chunked")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Tag), ev.Data)
			return ev.Tag != repository.EventClose
		case <-c.Request.Context().Done():
			return false
		}
	})
}
