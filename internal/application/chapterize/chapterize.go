// Package chapterize implements the three-tier chapter-boundary cascade
// (spec §4.8): hint parsing, then two single-shot LLM passes at increasing
// context budgets, then an iterative one-outline-at-a-time fallback.
package chapterize

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/schema"

	"github.com/vidsum/orchestrator/internal/application/chunk"
	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/infrastructure/llm"
	apperrors "github.com/vidsum/orchestrator/pkg/errors"
	"github.com/vidsum/orchestrator/pkg/tokencount"
)

// Generator is the subset of LlmClient the cascade needs, narrowed to an
// interface so tests can substitute a fake instead of a real model.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (*schema.Message, error)
}

// Chapterizer is a stateless, concurrency-safe cascade runner shared across
// every in-flight summarize job.
type Chapterizer struct {
	llm               Generator
	chunker           *chunk.Chunker
	counter           *tokencount.Counter
	topPDeterministic float64
}

// New creates a Chapterizer. topPDeterministic is the top-p used for every
// cascade-tier call (outline extraction is a deterministic task, per spec §6).
func New(llmClient Generator, chunker *chunk.Chunker, counter *tokencount.Counter, topPDeterministic float64) *Chapterizer {
	return &Chapterizer{llm: llmClient, chunker: chunker, counter: counter, topPDeterministic: topPDeterministic}
}

// run carries the per-invocation identity (vid, trigger) the cascade's
// private helpers need, keeping Chapterizer itself immutable and safe to
// share across concurrently running videos.
type run struct {
	c       *Chapterizer
	vid     string
	trigger string
}

// Run drives the full cascade for one video and returns its resulting
// chapters in start-ascending order. onNew, if non-nil, is called with each
// chapter as it is produced by the OneByOne tier, for incremental DOING
// publication; tiers A-C produce their full chapter set atomically and do
// not call onNew.
func (c *Chapterizer) Run(ctx context.Context, vid, trigger string, captions []entity.TimedText, lang string, hints []entity.ChapterHint, onNew func(*entity.Chapter)) ([]*entity.Chapter, error) {
	r := &run{c: c, vid: vid, trigger: trigger}

	if chapters, ok := parseHints(vid, trigger, lang, hints); ok {
		return chapters, nil
	}

	// A multiShot error is fatal only for that tier's call (spec §7): a
	// transient-remote failure falls through to the next tier exactly like
	// a budget/parse miss (ok=false), rather than aborting the cascade.
	if chapters, ok, _ := r.multiShot(ctx, "small", multiShotSmallLimit, captions, lang); ok {
		sortChapters(chapters)
		return chapters, nil
	}

	if chapters, ok, _ := r.multiShot(ctx, "large", multiShotLargeLimit, captions, lang); ok {
		sortChapters(chapters)
		return chapters, nil
	}

	// oneByOne returns whatever chapters it produced even when it stops on
	// an error partway through; only a zero-chapter result is fatal to the
	// cascade (spec §7) — a non-nil err with real chapters is swallowed so
	// that progress already made isn't thrown away.
	chapters, err := r.oneByOne(ctx, captions, lang, onNew)
	if len(chapters) == 0 {
		if err != nil {
			return nil, fmt.Errorf("cascade exhausted: %w", err)
		}
		return nil, fmt.Errorf("cascade exhausted: %w", apperrors.ErrFatalSummarize)
	}
	sortChapters(chapters)
	return chapters, nil
}

func sortChapters(chapters []*entity.Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Start < chapters[j].Start })
}
