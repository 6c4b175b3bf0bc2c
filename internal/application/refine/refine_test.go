package refine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/vidsum/orchestrator/internal/application/chunk"
	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/infrastructure/llm"
	"github.com/vidsum/orchestrator/pkg/tokencount"
)

type fakeGenerator struct {
	responses []string
	calls     int
	failTitle string
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (*schema.Message, error) {
	if f.failTitle != "" && strings.Contains(req.Messages[0].Content, `"`+f.failTitle+`"`) {
		return nil, errors.New("upstream returned 502")
	}
	if f.calls >= len(f.responses) {
		return &schema.Message{Role: schema.Assistant, Content: "- done."}, nil
	}
	resp := f.responses[f.calls]
	f.calls++
	return &schema.Message{Role: schema.Assistant, Content: resp}, nil
}

func newRefiner(t *testing.T, gen Generator, concurrency int) *Refiner {
	counter, err := tokencount.Default()
	require.NoError(t, err)
	return New(gen, chunk.New(counter), 0.8, concurrency)
}

func TestRefinerSinglePassPerChapter(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"- Says hi."}}
	r := newRefiner(t, gen, 2)

	captions := []entity.TimedText{{Start: 0, Text: "hi"}, {Start: 5, Text: "world"}}
	chapter := entity.NewChapter("vid1", "u", entity.SlicerLLM, entity.StyleText, 0, "en", "Intro", "Says hi.")
	chapters := []*entity.Chapter{chapter}

	hasException := r.Run(context.Background(), captions, chapters, "en")
	require.False(t, hasException)
	require.Equal(t, entity.StyleMarkdown, chapter.Style)
	require.Equal(t, "- Says hi.", chapter.Summary)
	require.Equal(t, 0, chapter.Refined)
}

func TestRefinerChapterSliceBoundaries(t *testing.T) {
	captions := []entity.TimedText{
		{Start: 0, Text: "a"},
		{Start: 4, Text: "b"},
		{Start: 9, Text: "c"},
		{Start: 15, Text: "d"},
	}
	chapters := []*entity.Chapter{
		{Start: 0},
		{Start: 9},
	}
	first := chapterSlice(captions, chapters, 0)
	require.Len(t, first, 2)
	second := chapterSlice(captions, chapters, 1)
	require.Len(t, second, 2)
}

func TestRefinerIsolatesPerChapterFailures(t *testing.T) {
	gen := &fakeGenerator{failTitle: "Broken"}
	r := newRefiner(t, gen, 1)

	captions := []entity.TimedText{{Start: 0, Text: "hi"}, {Start: 5, Text: "world"}}
	chapter := entity.NewChapter("vid1", "u", entity.SlicerLLM, entity.StyleText, 0, "en", "Intro", "")
	broken := entity.NewChapter("vid1", "u", entity.SlicerLLM, entity.StyleText, 5, "en", "Broken", "")
	hasException := r.Run(context.Background(), captions, []*entity.Chapter{chapter, broken}, "en")
	require.True(t, hasException)
	require.Equal(t, "- done.", chapter.Summary)
	require.Equal(t, entity.StyleMarkdown, chapter.Style)
	require.Empty(t, broken.Summary)
}
