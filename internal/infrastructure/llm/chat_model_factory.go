// Package llm provides the eino-backed chat-model factory and a retrying
// client wrapper used by the chapterize/refine stages.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/vidsum/orchestrator/internal/config"
)

// ChatModelFactory lazily builds and caches one eino ChatModel per named
// provider tier ("small", "large"). A per-call API key override bypasses the
// cache, since a cached instance is pinned to the key it was built with.
type ChatModelFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewChatModelFactory creates a factory reading cfg.LLM.
func NewChatModelFactory(cfg *config.Config) *ChatModelFactory {
	return &ChatModelFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get returns the cached or newly built ChatModel for name, using the
// provider's configured API key.
func (f *ChatModelFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	chatModel, err := f.build(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// GetWithAPIKey returns a ChatModel for name using apiKey instead of the
// provider's configured key. Never cached: each override could carry a
// different caller-supplied key.
func (f *ChatModelFactory) GetWithAPIKey(ctx context.Context, name, apiKey string) (model.BaseChatModel, error) {
	if apiKey == "" {
		return f.Get(ctx, name)
	}
	if name == "" {
		name = f.config.DefaultProvider
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}
	providerCfg.APIKey = apiKey

	chatModel, err := f.build(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s with overridden key: %w", name, err)
	}
	return chatModel, nil
}

// Default returns the factory's default-tier ChatModel.
func (f *ChatModelFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func (f *ChatModelFactory) build(ctx context.Context, providerCfg config.ProviderConfig) (model.BaseChatModel, error) {
	maxTokens := providerCfg.MaxTokens
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:     providerCfg.APIKey,
		BaseURL:    providerCfg.BaseURL,
		Model:      providerCfg.Model,
		MaxTokens:  &maxTokens,
		HTTPClient: f.httpClient(),
	})
}

// httpClient builds the HTTP client eino-ext's openai chat model issues its
// requests through, wrapping the transport with the transport-level retry
// count spec line 90 calls for ("transport-level retries=2 inside each
// attempt") — a layer underneath LlmClient's own attempt-level backoff.Retry.
func (f *ChatModelFactory) httpClient() *http.Client {
	return &http.Client{
		Transport: &retryTransport{retries: f.config.TransportRetry},
	}
}

// retryTransport retries a round trip on transport errors (connection
// refused/reset, DNS failures) up to retries times, rebuilding the request
// body from GetBody between attempts when the request provides one.
type retryTransport struct {
	base    http.RoundTripper
	retries int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.retries
	if attempts < 0 {
		attempts = 0
	}

	var resp *http.Response
	operation := func() error {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Body = body
		}
		r, err := base.RoundTrip(req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(0), uint64(attempts))
	if err := backoff.Retry(operation, backoff.WithContext(policy, req.Context())); err != nil {
		return nil, err
	}
	return resp, nil
}
