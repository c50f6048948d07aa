package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/ideaengine/internal/recipe"
	"github.com/dusk-indust/ideaengine/internal/store"
)

// ProviderInfo describes one registered provider.
type ProviderInfo struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
	Keyless    bool   `json:"keyless"`
}

// ProviderStatus lists the registered providers and whether each one has
// what it needs to be called.
func (e *Engine) ProviderStatus() []ProviderInfo {
	ids := e.registry.IDs()
	out := make([]ProviderInfo, 0, len(ids))
	for _, id := range ids {
		s := e.settings[id]
		info := ProviderInfo{ID: id, Keyless: !e.registry.NeedsKey(id)}
		info.Configured = info.Keyless || s.APIKey != ""
		if p, err := e.registry.New(id, s); err == nil {
			info.Model = p.Model()
		}
		out = append(out, info)
	}
	return out
}

// ListRecipes returns configured recipes overlaid with stored ones, sorted
// by name.
func (e *Engine) ListRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	stored, err := e.store.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	return recipe.Merge(e.recipes, stored), nil
}

// Recipe looks up a recipe by id, preferring the stored copy.
func (e *Engine) Recipe(ctx context.Context, id string) (*recipe.Recipe, error) {
	r, err := e.store.GetRecipe(ctx, id)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	for _, r := range e.recipes {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("recipe %s: %w", id, store.ErrNotFound)
}

// SaveRecipe validates and stores r, replacing any recipe with the same id.
func (e *Engine) SaveRecipe(ctx context.Context, r recipe.Recipe) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return e.store.SaveRecipe(ctx, r)
}
