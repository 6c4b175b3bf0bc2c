package chapterize

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/cloudwego/eino/schema"

	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/infrastructure/llm"
	"github.com/vidsum/orchestrator/pkg/jsonutil"
	"github.com/vidsum/orchestrator/pkg/tokencount"
)

type oneByOneLine struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	Text  string `json:"text"`
}

// oneByOne runs cascade state D: drains captions one outline at a time,
// advancing idx/latestEnd per the deadlock-avoidance stepping rules. onNew
// is invoked with each newly produced chapter for incremental DOING
// publication; it may be nil.
func (r *run) oneByOne(ctx context.Context, captions []entity.TimedText, lang string, onNew func(*entity.Chapter)) ([]*entity.Chapter, error) {
	var chapters []*entity.Chapter

	idx := 0
	latestEnd := 0

	for idx < len(captions) {
		window := captions[idx:]
		baseIdx := idx
		startTime := int(captions[idx].Start)
		system := fmt.Sprintf(oneByOneSystemPrompt, startTime, lang)

		render := func(sub []entity.TimedText) []tokencount.Message {
			lines := make([]oneByOneLine, len(sub))
			for i, cap := range sub {
				lines[i] = oneByOneLine{Index: baseIdx + i, Start: int(cap.Start), Text: cap.Text}
			}
			body, _ := json.Marshal(lines)
			return []tokencount.Message{
				{Role: "system", Content: system},
				{Role: "user", Content: string(body)},
			}
		}

		packed := r.c.chunker.Pack(window, render, oneByOneLimit)
		if len(packed) == 0 {
			break
		}

		msgs := render(packed)

		resp, err := r.c.llm.Generate(ctx, llm.Request{
			Provider: "small",
			Messages: []*schema.Message{schema.SystemMessage(msgs[0].Content), schema.UserMessage(msgs[1].Content)},
			TopP:     r.c.topPDeterministic,
		})
		if err != nil {
			return chapters, fmt.Errorf("one-by-one llm call: %w", err)
		}

		raw := jsonutil.ExtractJSONValue(resp.Content)
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			break
		}

		endAtVal, ok := parsed["end_at"].(float64)
		if !ok || endAtVal != math.Trunc(endAtVal) {
			break
		}
		endAt := int(endAtVal)

		start := -1
		if sv, ok := parsed["start"].(float64); ok {
			start = int(sv)
		}
		outline, _ := parsed["outline"].(string)

		if outline != "" && start >= 0 {
			chapter := entity.NewChapter(r.vid, r.trigger, entity.SlicerLLM, entity.StyleMarkdown, start, lang, outline, "")
			chapters = append(chapters, chapter)
			if onNew != nil {
				onNew(chapter)
			}
		}

		idx, latestEnd = advanceOneByOne(endAt, idx, latestEnd)
	}

	return chapters, nil
}

// advanceOneByOne computes the next (idx, latestEnd) pair per the
// deadlock-avoidance stepping rules: a repeated or stale end_at forces a
// fixed +5 jump past latestEnd; an end_at beyond the current pointer is
// treated as an over-claim and capped at idx; otherwise idx advances to just
// past the reported end.
func advanceOneByOne(endAt, idx, latestEnd int) (newIdx, newLatestEnd int) {
	switch {
	case endAt <= latestEnd:
		newLatestEnd = latestEnd + 5
		newIdx = newLatestEnd
	case endAt > idx:
		newLatestEnd = idx
		newIdx = newLatestEnd + 1
	default:
		newLatestEnd = endAt
		newIdx = endAt + 1
	}
	return newIdx, newLatestEnd
}
