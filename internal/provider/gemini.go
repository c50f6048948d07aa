package provider

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

// Compile-time interface check.
var _ Provider = (*Gemini)(nil)

const (
	GeminiID           = "gemini"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// Gemini calls generateContent through the Gen AI SDK with a JSON response
// MIME type. Both prompts are joined into a single user part. The SDK sends
// the key in the x-goog-api-key header, never in the URL.
type Gemini struct {
	settings Settings
	model    string
}

// NewGemini creates a Gemini adapter. An empty model selects
// DefaultGeminiModel.
func NewGemini(s Settings) *Gemini {
	return &Gemini{settings: s, model: s.modelOr(DefaultGeminiModel)}
}

func (g *Gemini) ID() string    { return GeminiID }
func (g *Gemini) Model() string { return g.model }

// Complete sends one generateContent request.
func (g *Gemini) Complete(ctx context.Context, system, user string) (idea.Bundle, error) {
	if g.settings.APIKey == "" {
		return idea.Bundle{}, ErrMissingCredential
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.settings.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.settings.httpClient(),
		HTTPOptions: genai.HTTPOptions{BaseURL: g.settings.BaseURL},
	})
	if err != nil {
		return idea.Bundle{}, &APIError{Provider: GeminiID, Err: err}
	}

	prompt := idea.WithSchemaHint(system) + "\n\n---\n\n" + user
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](Temperature),
		MaxOutputTokens:  MaxOutputTokens,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return idea.Bundle{}, statusError(GeminiID, apiErr.Code, apiErr.Message, err)
		}
		return idea.Bundle{}, &APIError{Provider: GeminiID, Err: err}
	}

	text := resp.Text()
	if text == "" {
		return idea.Bundle{}, parseFailure(GeminiID, errors.New("missing content"))
	}
	return toBundle(GeminiID, g.model, text)
}
