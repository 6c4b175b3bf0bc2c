package chapterize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/infrastructure/llm"
	"github.com/vidsum/orchestrator/pkg/jsonutil"
	"github.com/vidsum/orchestrator/pkg/tokencount"
)

type multiShotCaptionLine struct {
	Start int    `json:"start"`
	Text  string `json:"text"`
}

type multiShotEntry struct {
	Outline     string `json:"outline"`
	Information string `json:"information"`
	Start       int    `json:"start"`
	Timestamp   string `json:"timestamp"`
}

func renderMultiShotLines(captions []entity.TimedText) ([]byte, error) {
	lines := make([]multiShotCaptionLine, len(captions))
	for i, c := range captions {
		lines[i] = multiShotCaptionLine{Start: int(c.Start), Text: c.Text}
	}
	return json.Marshal(lines)
}

// multiShot runs cascade states B/C: one call asking for the full outline in
// a single shot. provider is "small" (state B, budget multiShotSmallLimit)
// or "large" (state C, budget multiShotLargeLimit). Returns ok=false when
// the rendered request would exceed budget, signalling the caller to fall
// through to the next tier without spending a call.
func (r *run) multiShot(ctx context.Context, provider string, limit int, captions []entity.TimedText, lang string) ([]*entity.Chapter, bool, error) {
	body, err := renderMultiShotLines(captions)
	if err != nil {
		return nil, false, fmt.Errorf("render multi-shot captions: %w", err)
	}

	system := fmt.Sprintf(multiShotSystemPrompt, lang, lang)
	user := string(body)

	if r.c.counter.CountMessages([]tokencount.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}) >= limit {
		return nil, false, nil
	}

	msgs := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	resp, err := r.c.llm.Generate(ctx, llm.Request{
		Provider: provider,
		Messages: msgs,
		TopP:     r.c.topPDeterministic,
	})
	if err != nil {
		return nil, false, fmt.Errorf("multi-shot llm call: %w", err)
	}

	raw := jsonutil.ExtractJSONValue(resp.Content)
	var entries []multiShotEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || len(entries) == 0 {
		return nil, false, nil
	}

	chapters := make([]*entity.Chapter, 0, len(entries))
	for _, e := range entries {
		if e.Outline == "" || e.Start < 0 {
			continue
		}
		chapters = append(chapters, entity.NewChapter(r.vid, r.trigger, entity.SlicerLLM, entity.StyleText, e.Start, lang, e.Outline, e.Information))
	}
	if len(chapters) == 0 {
		return nil, false, nil
	}
	return chapters, true, nil
}
