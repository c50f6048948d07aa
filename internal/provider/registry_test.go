package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

func TestNewRegistry_BuiltIns(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{AnthropicID, GeminiID, MockID, OpenAIID}, r.IDs())
	assert.True(t, r.NeedsKey(OpenAIID))
	assert.False(t, r.NeedsKey(MockID))
	assert.False(t, r.NeedsKey("nope"))
}

func TestRegistry_New(t *testing.T) {
	r := NewRegistry()

	p, err := r.New(GeminiID, Settings{Model: "gemini-pro"})
	require.NoError(t, err)
	assert.Equal(t, GeminiID, p.ID())
	assert.Equal(t, "gemini-pro", p.Model())

	_, err = r.New("unknown", Settings{})
	assert.ErrorContains(t, err, `no factory registered for provider "unknown"`)
}

func TestRegistry_Build(t *testing.T) {
	r := NewRegistry()
	sel := r.Build(
		[]string{GeminiID, "bogus", OpenAIID, MockID, GeminiID},
		map[string]Settings{GeminiID: {APIKey: "g"}},
	)

	ids := make([]string, len(sel.Providers))
	for i, p := range sel.Providers {
		ids[i] = p.ID()
	}
	assert.Equal(t, []string{GeminiID, OpenAIID, MockID}, ids, "request order, duplicates dropped")
	assert.Equal(t, []string{"bogus"}, sel.Unknown)
	assert.Equal(t, []string{OpenAIID}, sel.Missing)
	assert.Equal(t, 2, sel.Ready())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.RegisterKeyless(OpenAIID, func(Settings) Provider {
		return &Func{ProviderID: OpenAIID, ModelID: "fake", Fn: func(context.Context, string, string) (idea.Bundle, error) {
			return idea.Bundle{Provider: OpenAIID}, nil
		}}
	})

	sel := r.Build([]string{OpenAIID}, nil)
	require.Len(t, sel.Providers, 1)
	assert.Empty(t, sel.Missing)
	assert.Equal(t, "fake", sel.Providers[0].Model())
}
