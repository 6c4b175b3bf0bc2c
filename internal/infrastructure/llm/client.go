package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/vidsum/orchestrator/internal/config"
)

// Request is one chat completion call. Transport-level retries are
// configured once per provider on the factory's HTTP client (cfg.LLM.
// TransportRetry), not per call, since the client is cached per tier.
type Request struct {
	Provider string // "small" or "large"
	APIKey   string // overrides the provider's configured key when set
	Messages []*schema.Message
	TopP     float64
	Control  bool // true for a small control call (10s timeout) rather than chapterize/refine (90s)
}

// LlmClient wraps ChatModelFactory with the fixed-interval bounded retry
// policy and string-matched transient-error classification this system's
// precursor used around its chat completion calls.
type LlmClient struct {
	factory *ChatModelFactory
	cfg     *config.LLMConfig
}

// NewLlmClient creates a client bound to factory, reading retry policy from cfg.
func NewLlmClient(factory *ChatModelFactory, cfg *config.Config) *LlmClient {
	return &LlmClient{factory: factory, cfg: &cfg.LLM}
}

// Generate runs one chat completion, making up to RetryAttempts attempts in
// total on transient failures, with a fixed RetryWait interval between them.
func (c *LlmClient) Generate(ctx context.Context, req Request) (*schema.Message, error) {
	chatModel, err := c.factory.GetWithAPIKey(ctx, req.Provider, req.APIKey)
	if err != nil {
		return nil, err
	}

	opts := []model.Option{}
	if req.TopP > 0 {
		topP := float32(req.TopP)
		opts = append(opts, model.WithTopP(topP))
	}

	timeout := c.cfg.CallTimeout
	if req.Control {
		timeout = c.cfg.ControlTimeout
	}

	var out *schema.Message
	operation := func() error {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		msg, genErr := chatModel.Generate(callCtx, req.Messages, opts...)
		if genErr != nil {
			if isRetryable(genErr) {
				return genErr
			}
			return backoff.Permanent(genErr)
		}
		if msg == nil {
			return backoff.Permanent(fmt.Errorf("empty llm response"))
		}
		out = msg
		return nil
	}

	attempts := c.cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.RetryWait), uint64(attempts-1))

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("llm call failed after retries: %w", err)
	}
	return out, nil
}

// isRetryable classifies transient transport/rate-limit failures by string
// matching, the same idiom the workflow layer uses to sniff provider error
// text (eino-ext does not expose typed HTTP-status errors in this stack).
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return true
	case strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "connection reset"):
		return true
	case strings.Contains(msg, "connection refused"):
		return true
	case strings.Contains(msg, "eof"):
		return true
	case strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "502"):
		return true
	case strings.Contains(msg, "503"):
		return true
	case strings.Contains(msg, "504"):
		return true
	case strings.Contains(msg, "rate limit"):
		return true
	default:
		return false
	}
}
