package provider

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

// Compile-time interface check.
var _ Provider = (*OpenAI)(nil)

const (
	OpenAIID           = "openai"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAI calls the chat completions API through the official SDK, asking for
// a JSON object response.
type OpenAI struct {
	settings Settings
	model    string
}

// NewOpenAI creates an OpenAI adapter. An empty model selects
// DefaultOpenAIModel.
func NewOpenAI(s Settings) *OpenAI {
	return &OpenAI{settings: s, model: s.modelOr(DefaultOpenAIModel)}
}

func (o *OpenAI) ID() string    { return OpenAIID }
func (o *OpenAI) Model() string { return o.model }

// Complete sends one chat completion request. SDK-level retries are disabled;
// retry policy belongs to the caller.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (idea.Bundle, error) {
	if o.settings.APIKey == "" {
		return idea.Bundle{}, ErrMissingCredential
	}

	opts := []option.RequestOption{
		option.WithAPIKey(o.settings.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(o.settings.httpClient()),
	}
	if o.settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.settings.BaseURL))
	}
	client := openai.NewClient(opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(idea.WithSchemaHint(system)),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return idea.Bundle{}, statusError(OpenAIID, apiErr.StatusCode, apiErr.RawJSON(), err)
		}
		return idea.Bundle{}, &APIError{Provider: OpenAIID, Err: err}
	}
	if len(resp.Choices) == 0 {
		return idea.Bundle{}, parseFailure(OpenAIID, errors.New("missing content: empty choices"))
	}

	return toBundle(OpenAIID, o.model, resp.Choices[0].Message.Content)
}
