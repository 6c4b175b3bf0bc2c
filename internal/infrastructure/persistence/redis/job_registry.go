package redis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// JobRegistry implements repository.JobRegistry on a Redis client. Each key
// is a plain string value behind SETNX/EXPIRE, mirroring the rate limiter's
// key-builder-plus-pipeline idiom but without the sliding-window bookkeeping
// a single advisory flag doesn't need.
type JobRegistry struct {
	client *Client
}

// NewJobRegistry creates a job registry bound to client.
func NewJobRegistry(client *Client) *JobRegistry {
	return &JobRegistry{client: client}
}

// TrySet sets key if absent, with the given TTL. Returns true if this call
// won the set.
func (j *JobRegistry) TrySet(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "jobregistry.TrySet")
	span.SetAttributes(attribute.String("jobregistry.key", key))
	defer span.End()

	ok, err := j.client.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("jobregistry.won", ok))
	return ok, nil
}

// Exists reports whether key is currently set.
func (j *JobRegistry) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "jobregistry.Exists")
	span.SetAttributes(attribute.String("jobregistry.key", key))
	defer span.End()

	n, err := j.client.rdb.Exists(ctx, key).Result()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return n > 0, nil
}

// Refresh resets key's TTL without changing its value. No-op if absent.
func (j *JobRegistry) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "jobregistry.Refresh")
	span.SetAttributes(attribute.String("jobregistry.key", key))
	defer span.End()

	if err := j.client.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Clear deletes key.
func (j *JobRegistry) Clear(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "jobregistry.Clear")
	span.SetAttributes(attribute.String("jobregistry.key", key))
	defer span.End()

	if err := j.client.rdb.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
