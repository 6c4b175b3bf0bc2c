package orchestrator

import (
	"github.com/vidsum/orchestrator/internal/domain/entity"
)

// anyEmptySummary reports whether any existing chapter is still pending a
// refine pass.
func anyEmptySummary(chapters []*entity.Chapter) bool {
	for _, c := range chapters {
		if c.Summary == "" {
			return true
		}
	}
	return false
}

// shouldResummarizeOnFeedback implements spec §4.8's literal ratio rule:
// below minTotal combined votes, feedback is too sparse to act on; at or
// above it, a bad ratio at or past badRatio forces a fresh run. No
// flooring of good/bad at 1 is applied — spec §8's worked examples
// (9/1→no, 8/2→yes, 100/19→no, 100/25→yes) are all satisfied by the literal
// ratio, and the Python precursor's floor-at-1 behavior only ever changes
// the outcome when one counter is exactly zero, a case spec §8 never
// exercises (see DESIGN.md).
func shouldResummarizeOnFeedback(feedback *entity.Feedback, minTotal int, badRatio float64) bool {
	if feedback == nil {
		return false
	}
	total := feedback.Good + feedback.Bad
	if total < minTotal {
		return false
	}
	return float64(feedback.Bad)/float64(total) >= badRatio
}
