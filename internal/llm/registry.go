package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/gork/internal/config"
	"github.com/soyeahso/gork/internal/logging"
)

// Registry manages provider clients and resolves model ids to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered LLM provider")
}

// Alias maps a model name to a provider.
// e.g., Alias("gpt-4.1-mini", "openai").
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → model family → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Direct provider name match
	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	// Alias lookup
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	// Provider inferred from the model family
	if c, ok := r.clients[ProviderFor(model)]; ok {
		return c, nil
	}

	// Fallback
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no LLM provider for model %q", model)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig registers a client for every provider with
// credentials. The provider of the configured model becomes the fallback.
func NewRegistryFromConfig(ctx context.Context, cfg config.AIConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)

	if p := cfg.Provider("openai"); p.APIKey != "" {
		reg.Register("openai", NewOpenAIClient(p.APIKey, p.BaseURL))
		for _, m := range []string{ModelGPT41Mini, ModelGPT4oMini, ModelGPT41Nano, ModelGPT5Mini} {
			reg.Alias(m, "openai")
		}
	}

	if p := cfg.Provider("gemini"); p.APIKey != "" {
		client, err := NewGeminiClient(ctx, p.APIKey, p.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		reg.Register("gemini", client)
	}

	reg.SetFallback(ProviderFor(cfg.Model))
	return reg, nil
}
