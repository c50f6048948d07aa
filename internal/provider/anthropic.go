package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

// Compile-time interface check.
var _ Provider = (*Anthropic)(nil)

const (
	AnthropicID           = "anthropic"
	DefaultAnthropicModel = "claude-3-5-haiku-20241022"
)

// Anthropic calls the Messages API through the official SDK. The response
// schema is requested through the system prompt, so the reply may arrive
// wrapped in a code fence.
type Anthropic struct {
	settings Settings
	model    string
}

// NewAnthropic creates an Anthropic adapter. An empty model selects
// DefaultAnthropicModel.
func NewAnthropic(s Settings) *Anthropic {
	return &Anthropic{settings: s, model: s.modelOr(DefaultAnthropicModel)}
}

func (a *Anthropic) ID() string    { return AnthropicID }
func (a *Anthropic) Model() string { return a.model }

// Complete sends one Messages API request with SDK retries disabled.
func (a *Anthropic) Complete(ctx context.Context, system, user string) (idea.Bundle, error) {
	if a.settings.APIKey == "" {
		return idea.Bundle{}, ErrMissingCredential
	}

	opts := []option.RequestOption{
		option.WithAPIKey(a.settings.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(a.settings.httpClient()),
	}
	if a.settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(a.settings.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: MaxOutputTokens,
		System:    []anthropic.TextBlockParam{{Text: idea.WithSchemaHint(system)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Temperature: anthropic.Float(Temperature),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return idea.Bundle{}, statusError(AnthropicID, apiErr.StatusCode, apiErr.RawJSON(), err)
		}
		return idea.Bundle{}, &APIError{Provider: AnthropicID, Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return idea.Bundle{}, parseFailure(AnthropicID, errors.New("missing content"))
	}

	return toBundle(AnthropicID, a.model, text.String())
}
