// Package tokencount counts chat tokens the way OpenAI's chat completion
// accounting does, so budget checks in chunk/chapterize/refine match what
// the provider will actually bill and enforce.
package tokencount

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Message is the minimal chat-message shape token counting needs.
type Message struct {
	Role    string
	Name    string
	Content string
}

// Counter counts tokens against a fixed encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

var (
	defaultOnce    sync.Once
	defaultCounter *Counter
	defaultErr     error
)

// New builds a Counter for the given tiktoken encoding name.
func New(encoding string) (*Counter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s: %w", encoding, err)
	}
	return &Counter{enc: enc}, nil
}

// Default returns a process-wide Counter on cl100k_base, the encoding every
// model this system talks to (GPT-3.5/4-family) uses.
func Default() (*Counter, error) {
	defaultOnce.Do(func() {
		defaultCounter, defaultErr = New("cl100k_base")
	})
	return defaultCounter, defaultErr
}

// CountText returns the token length of a bare string.
func (c *Counter) CountText(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages returns the token length of a full chat turn, following the
// documented per-message/per-reply overhead: every message costs 4 tokens of
// framing plus its role/content/name, a named message saves 1 token because
// the role is omitted, and the whole request primes 2 tokens for the
// assistant's reply.
func (c *Counter) CountMessages(messages []Message) int {
	total := 2
	for _, m := range messages {
		total += 4
		total += c.CountText(m.Role)
		total += c.CountText(m.Content)
		if m.Name != "" {
			total += c.CountText(m.Name) - 1
		}
	}
	return total
}
