package chunk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/pkg/tokencount"
)

func renderLines(captions []entity.TimedText) []tokencount.Message {
	content := ""
	for _, c := range captions {
		content += fmt.Sprintf("[%s]\n", c.Text)
	}
	return []tokencount.Message{
		{Role: "system", Content: "Summarize the following transcript."},
		{Role: "user", Content: content},
	}
}

func TestChunkerPackInvariant(t *testing.T) {
	counter, err := tokencount.Default()
	require.NoError(t, err)
	c := New(counter)

	captions := make([]entity.TimedText, 200)
	for i := range captions {
		captions[i] = entity.TimedText{Start: float64(i), Duration: 1, Text: fmt.Sprintf("line number %d of the transcript text", i)}
	}

	const limit = 200
	prefix := c.Pack(captions, renderLines, limit)

	got := counter.CountMessages(renderLines(prefix))
	require.Less(t, got, limit)

	if len(prefix) < len(captions) {
		next := counter.CountMessages(renderLines(captions[:len(prefix)+1]))
		require.GreaterOrEqual(t, next, limit)
	}
}

func TestChunkerPackEmptyInput(t *testing.T) {
	counter, err := tokencount.Default()
	require.NoError(t, err)
	c := New(counter)

	prefix := c.Pack(nil, renderLines, 1000)
	require.Empty(t, prefix)
}

func TestChunkerPackWholeInputFitsUnderLimit(t *testing.T) {
	counter, err := tokencount.Default()
	require.NoError(t, err)
	c := New(counter)

	captions := []entity.TimedText{
		{Start: 0, Text: "hi"},
		{Start: 5, Text: "world"},
	}
	prefix := c.Pack(captions, renderLines, 100000)
	require.Len(t, prefix, len(captions))
}
