package providers

import (
	"fmt"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/config"
	"github.com/haasonsaas/parley/internal/observability"
)

// Resolver maps logical model keys from configuration to a provider
// instance and concrete model name.
type Resolver struct {
	providers map[string]agent.LLMProvider
	models    map[string]config.ModelConfig
}

// NewResolver builds provider instances for every configured provider.
// Every provider speaks the OpenAI wire protocol; BaseURL points
// compatible vendors at their own endpoints.
func NewResolver(cfg config.LLMConfig, logger *observability.Logger) (*Resolver, error) {
	providers := make(map[string]agent.LLMProvider, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		p, err := NewOpenAIProvider(OpenAIConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL}, logger)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		providers[name] = p
	}
	return &Resolver{providers: providers, models: cfg.Models}, nil
}

// Resolve returns the provider and model name for a logical model key.
func (r *Resolver) Resolve(modelKey string) (agent.LLMProvider, string, error) {
	mc, ok := r.models[modelKey]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", agent.ErrUnknownModelKey, modelKey)
	}
	p, ok := r.providers[mc.Provider]
	if !ok {
		return nil, "", fmt.Errorf("no provider %q configured for model key %q", mc.Provider, modelKey)
	}
	return p, mc.Model, nil
}
