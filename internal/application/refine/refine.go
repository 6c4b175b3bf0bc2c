// Package refine implements per-chapter iterative bullet-list
// summarization (spec §4.9): each chapter's caption slice is packed and
// summarized in one or more passes, refined chapters running in bounded
// parallel across a video.
package refine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	"github.com/vidsum/orchestrator/internal/application/chunk"
	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/infrastructure/llm"
	"github.com/vidsum/orchestrator/pkg/tokencount"
)

// Generator is the subset of LlmClient the refiner needs.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (*schema.Message, error)
}

// Refiner summarizes each chapter's caption slice into a bullet list.
type Refiner struct {
	llm          Generator
	chunker      *chunk.Chunker
	topPFreeform float64
	concurrency  int
}

// New creates a Refiner. concurrency<=0 means unbounded (one goroutine per
// chapter); topPFreeform is the top-p used for free-form summarization
// calls (spec §6: 0.8 default).
func New(llmClient Generator, chunker *chunk.Chunker, topPFreeform float64, concurrency int) *Refiner {
	return &Refiner{llm: llmClient, chunker: chunker, topPFreeform: topPFreeform, concurrency: concurrency}
}

// Run refines every chapter's summary in place. chapters must already be
// sorted by Start ascending. Returns hasException=true if any chapter's
// refinement failed; other chapters still complete (spec §4.9, §7).
func (r *Refiner) Run(ctx context.Context, captions []entity.TimedText, chapters []*entity.Chapter, lang string) bool {
	var mu sync.Mutex
	hasException := false

	eg, ctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		eg.SetLimit(r.concurrency)
	}

	for i, chapter := range chapters {
		i, chapter := i, chapter
		slice := chapterSlice(captions, chapters, i)

		eg.Go(func() error {
			if err := r.refineOne(ctx, chapter, slice, lang); err != nil {
				mu.Lock()
				hasException = true
				mu.Unlock()
			}
			return nil
		})
	}

	_ = eg.Wait()
	return hasException
}

// chapterSlice returns the caption lines belonging to chapters[i]: those
// with start in [chapters[i].Start, nextStart).
func chapterSlice(captions []entity.TimedText, chapters []*entity.Chapter, i int) []entity.TimedText {
	start := float64(chapters[i].Start)
	nextStart := float64(-1)
	if i+1 < len(chapters) {
		nextStart = float64(chapters[i+1].Start)
	}

	var out []entity.TimedText
	for _, c := range captions {
		if c.Start < start {
			continue
		}
		if nextStart >= 0 && c.Start >= nextStart {
			break
		}
		out = append(out, c)
	}
	return out
}

func renderLine(c entity.TimedText) string {
	return fmt.Sprintf("[%s]\n", c.Text)
}

func (r *Refiner) refineOne(ctx context.Context, chapter *entity.Chapter, slice []entity.TimedText, lang string) error {
	offset := 0
	passes := 0

	for offset < len(slice) {
		remaining := slice[offset:]
		first := passes == 0

		var limit int
		var render chunk.RenderFunc
		if first {
			limit = firstLimit
			render = func(captions []entity.TimedText) []tokencount.Message {
				return []tokencount.Message{
					{Role: "system", Content: fmt.Sprintf(firstSystemPrompt, chapter.Title, lang)},
					{Role: "user", Content: renderLines(captions)},
				}
			}
		} else {
			limit = nextLimit
			render = func(captions []entity.TimedText) []tokencount.Message {
				return []tokencount.Message{
					{Role: "system", Content: fmt.Sprintf(nextSystemPrompt, chapter.Summary, chapter.Title, lang)},
					{Role: "user", Content: renderLines(captions)},
				}
			}
		}

		packed := r.chunker.Pack(remaining, render, limit)
		if len(packed) == 0 {
			break
		}

		msgs := render(packed)
		resp, err := r.llm.Generate(ctx, llm.Request{
			Provider: "small",
			Messages: []*schema.Message{schema.SystemMessage(msgs[0].Content), schema.UserMessage(msgs[1].Content)},
			TopP:     r.topPFreeform,
		})
		if err != nil {
			return fmt.Errorf("refine chapter %s: %w", chapter.Cid, err)
		}

		chapter.Summary = strings.TrimSpace(resp.Content)
		passes++
		offset += len(packed)
	}

	chapter.Style = entity.StyleMarkdown
	if passes > 0 {
		chapter.Refined = passes - 1
	}
	chapter.UpdatedAt = time.Now()
	return nil
}

func renderLines(captions []entity.TimedText) string {
	var b strings.Builder
	for _, c := range captions {
		b.WriteString(renderLine(c))
	}
	return b.String()
}
