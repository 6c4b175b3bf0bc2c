// Package chunk packs caption lines into LLM chat messages under a token
// budget (spec §4.7).
package chunk

import (
	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/pkg/tokencount"
)

// RenderFunc renders a caption prefix into the chat messages that would be
// sent to the LLM if that prefix were chosen — typically one system/
// instruction message plus a user message embedding the rendered captions.
type RenderFunc func(captions []entity.TimedText) []tokencount.Message

// Chunker greedily packs the largest caption prefix whose rendered message
// token count stays strictly under a limit.
type Chunker struct {
	counter *tokencount.Counter
}

// New creates a Chunker counting tokens with counter.
func New(counter *tokencount.Counter) *Chunker {
	return &Chunker{counter: counter}
}

// Pack returns the longest prefix of captions such that
// tokens(render(prefix)) < limit, and either the prefix is the full slice or
// tokens(render(prefix+next)) >= limit. Deterministic and greedy: captions
// are tried one at a time in order, and the first one that would cross the
// budget stops the scan.
func (c *Chunker) Pack(captions []entity.TimedText, render RenderFunc, limit int) []entity.TimedText {
	end := 0
	for end < len(captions) {
		if c.counter.CountMessages(render(captions[:end+1])) >= limit {
			break
		}
		end++
	}
	return captions[:end]
}
