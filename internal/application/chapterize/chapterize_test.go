package chapterize

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/vidsum/orchestrator/internal/application/chunk"
	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/infrastructure/llm"
	apperrors "github.com/vidsum/orchestrator/pkg/errors"
	"github.com/vidsum/orchestrator/pkg/tokencount"
)

type fakeGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (*schema.Message, error) {
	if f.calls >= len(f.responses) {
		return &schema.Message{Role: schema.Assistant, Content: ""}, nil
	}
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return &schema.Message{Role: schema.Assistant, Content: f.responses[i]}, nil
}

func newChapterizer(t *testing.T, gen Generator) *Chapterizer {
	counter, err := tokencount.Default()
	require.NoError(t, err)
	return New(gen, chunk.New(counter), counter, 0.1)
}

func TestChapterizerHintParse(t *testing.T) {
	c := newChapterizer(t, &fakeGenerator{})
	hints := []entity.ChapterHint{
		{Title: "Intro", Timestamp: "0:00"},
		{Title: "Body", Timestamp: "1:02:03"},
	}
	chapters, err := c.Run(context.Background(), "vid1", "user1", nil, "en", hints, nil)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	require.Equal(t, 0, chapters[0].Start)
	require.Equal(t, 3723, chapters[1].Start)
	require.Equal(t, entity.SlicerYouTube, chapters[0].Slicer)
}

func TestChapterizerMalformedHintsFallThrough(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`[{"outline":"Intro","information":"Says hi.","start":0,"timestamp":"00:00:00"}]`,
	}}
	c := newChapterizer(t, gen)
	hints := []entity.ChapterHint{{Title: "Bad", Timestamp: "not-a-time"}}
	captions := []entity.TimedText{{Start: 0, Text: "hi"}}

	chapters, err := c.Run(context.Background(), "vid1", "user1", captions, "en", hints, nil)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	require.Equal(t, entity.SlicerLLM, chapters[0].Slicer)
	require.Equal(t, entity.StyleText, chapters[0].Style)
}

func TestChapterizerMultiShotSmallSuccess(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`[{"outline":"Intro","information":"Says hi.","start":0,"timestamp":"00:00:00"}]`,
	}}
	c := newChapterizer(t, gen)
	captions := []entity.TimedText{{Start: 0, Text: "hi"}, {Start: 5, Text: "world"}}

	chapters, err := c.Run(context.Background(), "vidA", "u", captions, "en", nil, nil)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	require.Equal(t, 1, gen.calls)
}

func TestChapterizerFallsBackToOneByOneOnUnparseableMultiShot(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"not json at all",
		"still not json",
		`{"end_at":0,"start":0,"timestamp":"00:00:00","outline":"Intro"}`,
	}}
	c := newChapterizer(t, gen)
	captions := []entity.TimedText{{Start: 0, Text: "hi"}}

	chapters, err := c.Run(context.Background(), "vidB", "u", captions, "en", nil, nil)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	require.Equal(t, entity.StyleMarkdown, chapters[0].Style)
}

func TestChapterizerZeroChaptersIsFatal(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"garbage",
		"garbage",
		"garbage",
	}}
	c := newChapterizer(t, gen)
	captions := []entity.TimedText{{Start: 0, Text: "hi"}}

	_, err := c.Run(context.Background(), "vidC", "u", captions, "en", nil, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrFatalSummarize)
}

func TestChapterizerMultiShotTransientErrorFallsThrough(t *testing.T) {
	gen := &fakeGenerator{
		responses: []string{"", "", `{"end_at":0,"start":0,"timestamp":"00:00:00","outline":"Intro"}`},
		errs:      []error{errors.New("connection reset"), errors.New("connection reset"), nil},
	}
	c := newChapterizer(t, gen)
	captions := []entity.TimedText{{Start: 0, Text: "hi"}}

	chapters, err := c.Run(context.Background(), "vidD", "u", captions, "en", nil, nil)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
}

func TestChapterizerOneByOnePartialProgressSurvivesLateError(t *testing.T) {
	gen := &fakeGenerator{
		responses: []string{
			"", "",
			`{"end_at":1,"start":0,"timestamp":"00:00:00","outline":"Intro"}`,
			"",
		},
		errs: []error{
			errors.New("connection reset"), errors.New("connection reset"),
			nil,
			errors.New("connection reset"),
		},
	}
	c := newChapterizer(t, gen)
	captions := []entity.TimedText{{Start: 0, Text: "hi"}, {Start: 1, Text: "there"}}

	chapters, err := c.Run(context.Background(), "vidE", "u", captions, "en", nil, nil)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	require.Equal(t, "Intro", chapters[0].Title)
}

func TestAdvanceOneByOneDeadlockAvoidance(t *testing.T) {
	// spec §8: repeated end_at=5 with latestEnd=5 advances idx to 10.
	idx, latestEnd := advanceOneByOne(5, 6, 5)
	require.Equal(t, 10, idx)
	require.Equal(t, 10, latestEnd)
}

func TestAdvanceOneByOneOverClaim(t *testing.T) {
	idx, latestEnd := advanceOneByOne(5, 0, 0)
	require.Equal(t, 1, idx)
	require.Equal(t, 0, latestEnd)
}

func TestAdvanceOneByOneNormalProgress(t *testing.T) {
	idx, latestEnd := advanceOneByOne(5, 5, 0)
	require.Equal(t, 6, idx)
	require.Equal(t, 5, latestEnd)
}
