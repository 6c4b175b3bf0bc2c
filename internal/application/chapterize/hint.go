package chapterize

import (
	"github.com/vidsum/orchestrator/internal/domain/entity"
)

// parseHints converts user-supplied hints into Chapters (cascade state A).
// If any hint's timestamp fails to decode, all hints are discarded and the
// caller falls through to the LLM tiers, per spec §4.8.
func parseHints(vid, trigger, lang string, hints []entity.ChapterHint) ([]*entity.Chapter, bool) {
	if len(hints) == 0 {
		return nil, false
	}

	chapters := make([]*entity.Chapter, 0, len(hints))
	for _, h := range hints {
		start, err := decodeTimestamp(h.Timestamp)
		if err != nil {
			return nil, false
		}
		chapters = append(chapters, entity.NewChapter(vid, trigger, entity.SlicerYouTube, entity.StyleMarkdown, start, lang, h.Title, ""))
	}
	return chapters, true
}
