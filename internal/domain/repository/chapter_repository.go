// Package repository defines the data-access-layer interfaces the core consumes.
package repository

import (
	"context"

	"github.com/vidsum/orchestrator/internal/domain/entity"
)

// ChapterStore is the durable, per-video chapter collection (spec §4.2).
// It is the source of truth: any race between JobRegistry and ChapterStore
// resolves in favor of ChapterStore.
type ChapterStore interface {
	// FindByVid returns chapters for vid ordered by start ascending. limit<=0 means no limit.
	FindByVid(ctx context.Context, vid string, limit int) ([]*entity.Chapter, error)

	// Replace atomically deletes vid's chapters and inserts the given set.
	Replace(ctx context.Context, vid string, chapters []*entity.Chapter) error

	// DeleteByVid deletes all chapters for vid.
	DeleteByVid(ctx context.Context, vid string) error
}

// FeedbackReader reads good/bad counters for a video (spec §4.2, interface only).
type FeedbackReader interface {
	Get(ctx context.Context, vid string) (*entity.Feedback, error)
}

// FeedbackStore extends FeedbackReader with the increment operation used by
// the illustrative /feedback/{vid} dispatcher (SPEC_FULL §12); the core
// Orchestrator only ever reads through FeedbackReader.
type FeedbackStore interface {
	FeedbackReader
	Increment(ctx context.Context, vid string, good, bad int) error
}
