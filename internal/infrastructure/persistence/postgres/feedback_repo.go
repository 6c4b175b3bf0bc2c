package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vidsum/orchestrator/internal/domain/entity"
)

// FeedbackRepository implements repository.FeedbackStore on PostgreSQL.
type FeedbackRepository struct {
	client *Client
}

// NewFeedbackRepository creates a feedback repository bound to client.
func NewFeedbackRepository(client *Client) *FeedbackRepository {
	return &FeedbackRepository{client: client}
}

// Get returns vid's good/bad counters, or nil if vid has no feedback row yet.
func (r *FeedbackRepository) Get(ctx context.Context, vid string) (*entity.Feedback, error) {
	ctx, span := tracer.Start(ctx, "postgres.FeedbackRepository.Get")
	defer span.End()

	q := getQuerier(ctx, r.client.sqlDB)

	row := q.QueryRowContext(ctx, `
		SELECT vid, good, bad, create_ts, update_ts FROM feedback WHERE vid = $1
	`, vid)

	var f entity.Feedback
	err := row.Scan(&f.Vid, &f.Good, &f.Bad, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get feedback for %s: %w", vid, err)
	}
	return &f, nil
}

// Increment adds good/bad deltas for vid, creating the row if absent.
//
// Both counters are bumped in the same statement so a concurrent Get never
// observes an update where only one side advanced.
func (r *FeedbackRepository) Increment(ctx context.Context, vid string, good, bad int) error {
	ctx, span := tracer.Start(ctx, "postgres.FeedbackRepository.Increment")
	defer span.End()

	q := getQuerier(ctx, r.client.sqlDB)

	_, err := q.ExecContext(ctx, `
		INSERT INTO feedback (vid, good, bad, create_ts, update_ts)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (vid) DO UPDATE SET
			good = feedback.good + EXCLUDED.good,
			bad = feedback.bad + EXCLUDED.bad,
			update_ts = NOW()
	`, vid, good, bad)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to increment feedback for %s: %w", vid, err)
	}
	return nil
}
