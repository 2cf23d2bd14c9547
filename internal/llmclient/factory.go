// File: internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xKony/x-automate/api/schemas"
	"github.com/xKony/x-automate/internal/config"
)

// NewGenerator builds the configured ContentGenerator and wraps it with a
// process-wide request limiter so the simulator can never hit the API faster
// than the configured requests-per-minute budget.
func NewGenerator(cfg config.LLMConfig, logger *zap.Logger) (schemas.ContentGenerator, error) {
	prompt, err := LoadPrompt(cfg.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("loading prompt template: %w", err)
	}

	var inner schemas.ContentGenerator
	switch cfg.Provider {
	case config.ProviderMistral:
		inner, err = NewMistralClient(cfg, prompt, logger)
	case config.ProviderGemini:
		inner, err = NewGeminiClient(cfg, prompt, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q, supported: [%s, %s]",
			cfg.Provider, config.ProviderMistral, config.ProviderGemini)
	}
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
	return &limitedGenerator{inner: inner, limiter: limiter}, nil
}

// limitedGenerator throttles generation calls with a token bucket.
type limitedGenerator struct {
	inner   schemas.ContentGenerator
	limiter *rate.Limiter
}

func (g *limitedGenerator) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for request budget: %w", err)
	}
	return g.inner.Generate(ctx, req)
}
