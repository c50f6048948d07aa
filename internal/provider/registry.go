package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider from explicit settings.
type Factory func(Settings) Provider

type registration struct {
	factory Factory
	keyless bool
}

// Registry maps provider identifiers to their factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

// NewRegistry creates a Registry pre-registered with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]registration)}
	r.Register(OpenAIID, func(s Settings) Provider { return NewOpenAI(s) })
	r.Register(AnthropicID, func(s Settings) Provider { return NewAnthropic(s) })
	r.Register(GeminiID, func(s Settings) Provider { return NewGemini(s) })
	r.RegisterKeyless(MockID, func(s Settings) Provider { return NewMock(s) })
	return r
}

// Register adds or replaces a factory for a provider that needs an API key.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = registration{factory: f}
}

// RegisterKeyless adds or replaces a factory for a provider that needs no
// API key.
func (r *Registry) RegisterKeyless(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = registration{factory: f, keyless: true}
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NeedsKey reports whether id is registered and requires an API key.
func (r *Registry) NeedsKey(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[id]
	return ok && !reg.keyless
}

// New creates a single provider by identifier.
func (r *Registry) New(id string, s Settings) (Provider, error) {
	r.mu.RLock()
	reg, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no factory registered for provider %q", id)
	}
	return reg.factory(s), nil
}

// Selection is the outcome of resolving requested provider identifiers.
type Selection struct {
	// Providers are built in request order, including those whose key is
	// missing; those fail with ErrMissingCredential without a request.
	Providers []Provider

	// Unknown lists requested identifiers with no registered factory.
	Unknown []string

	// Missing lists providers that need an API key but have none.
	Missing []string
}

// Ready returns how many selected providers can actually be dispatched.
func (s Selection) Ready() int {
	return len(s.Providers) - len(s.Missing)
}

// Build resolves ids in order against settings. Duplicate ids are built once.
func (r *Registry) Build(ids []string, settings map[string]Settings) Selection {
	var sel Selection
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		r.mu.RLock()
		reg, ok := r.entries[id]
		r.mu.RUnlock()
		if !ok {
			sel.Unknown = append(sel.Unknown, id)
			continue
		}
		s := settings[id]
		if !reg.keyless && s.APIKey == "" {
			sel.Missing = append(sel.Missing, id)
		}
		sel.Providers = append(sel.Providers, reg.factory(s))
	}
	return sel
}
