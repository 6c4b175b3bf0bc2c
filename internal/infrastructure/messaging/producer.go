package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vidsum/orchestrator/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// Producer publishes Messages onto a Stream.
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer creates a producer bound to client. maxLen caps the stream's
// approximate length; 0 uses a sensible default.
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish appends msg to stream.
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	attachContextMetadata(ctx, msg)

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishSummarizeJob dispatches one summarize run to the job-worker fleet.
func (p *Producer) PublishSummarizeJob(ctx context.Context, job *SummarizeJobMessage) (string, error) {
	msg, err := NewMessage(job.Vid, "summarize_job", job)
	if err != nil {
		return "", err
	}
	msg.SetMetadata("trigger", job.Trigger)
	return p.Publish(ctx, StreamSummarizeJob, msg)
}

func attachContextMetadata(ctx context.Context, msg *Message) {
	if msg == nil {
		return
	}
	if msg.Metadata == nil {
		msg.Metadata = make(map[string]string)
	}
	if _, ok := msg.Metadata["request_id"]; !ok {
		if v := ctx.Value(logger.RequestIDKey); v != nil {
			if s, ok := v.(string); ok && s != "" {
				msg.Metadata["request_id"] = s
			}
		}
	}
	if _, ok := msg.Metadata["trace_id"]; !ok {
		if v := ctx.Value(logger.TraceIDKey); v != nil {
			if s, ok := v.(string); ok && s != "" {
				msg.Metadata["trace_id"] = s
			}
		}
	}
}
