package messaging

import (
	"context"

	"github.com/vidsum/orchestrator/internal/domain/entity"
)

// JobEnqueuer adapts Producer to the orchestrator.Enqueuer interface, so
// the application layer depends on a narrow interface rather than this
// package's Redis Stream specifics.
type JobEnqueuer struct {
	producer *Producer
}

// NewJobEnqueuer wraps producer as an orchestrator.Enqueuer.
func NewJobEnqueuer(producer *Producer) *JobEnqueuer {
	return &JobEnqueuer{producer: producer}
}

// EnqueueSummarizeJob dispatches a summarize_job message for vid.
func (e *JobEnqueuer) EnqueueSummarizeJob(ctx context.Context, vid, trigger string, hints []entity.ChapterHint) error {
	_, err := e.producer.PublishSummarizeJob(ctx, &SummarizeJobMessage{Vid: vid, Trigger: trigger, Hints: hints})
	return err
}
