// Package messaging carries summarize-job dispatch from the HTTP gateway to
// the background worker over a durable Redis Stream — the one piece of this
// system that needs consumer-group redelivery semantics, unlike the
// transient EventBus.
package messaging

import (
	"encoding/json"
	"time"

	"github.com/vidsum/orchestrator/internal/domain/entity"
)

// Message is the envelope carried on a Stream.
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage builds a Message with payload marshaled to JSON.
func NewMessage(id, msgType string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        id,
		Type:      msgType,
		Payload:   payloadBytes,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now(),
	}, nil
}

// SetMetadata sets a metadata key.
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata reads a metadata key, returning "" if absent.
func (m *Message) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// UnmarshalPayload decodes the message payload into v.
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// Stream names a Redis Stream.
type Stream string

const (
	// StreamSummarizeJob carries summarize_job dispatch messages.
	StreamSummarizeJob Stream = "stream:summarize:job"
)

// DLQStream names the dead-letter stream paired with s.
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup names a Stream consumer group.
type ConsumerGroup string

const (
	// ConsumerGroupJobWorker is the job-worker fleet's consumer group.
	ConsumerGroupJobWorker ConsumerGroup = "cg-job-worker"
)

// BackoffConfig configures exponential backoff between redelivery attempts.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig is a reasonable default for job redelivery.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff returns the wait before the retryCount-th redelivery.
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	backoff := c.Initial
	for i := 0; i < retryCount; i++ {
		backoff = time.Duration(float64(backoff) * c.Multiplier)
		if backoff > c.Max {
			backoff = c.Max
			break
		}
	}
	return backoff
}

// SummarizeJobMessage is the payload dispatched for one summarize run. The
// job-worker re-fetches captions itself rather than having them carried on
// the message, keeping stream entries small; Hints lets a forced
// re-summarization triggered by a hinted request reach the worker.
type SummarizeJobMessage struct {
	Vid     string              `json:"vid"`
	Trigger string              `json:"trigger"`
	Hints   []entity.ChapterHint `json:"hints,omitempty"`
}
