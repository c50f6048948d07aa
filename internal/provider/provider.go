// Package provider defines the completion provider contract and the concrete
// adapters for hosted text-completion APIs.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/dusk-indust/ideaengine/internal/idea"
)

// Provider turns a system and user prompt into an idea bundle.
type Provider interface {
	// ID returns the stable provider identifier (e.g. "openai").
	ID() string

	// Model returns the model identifier the provider calls.
	Model() string

	// Complete asks the provider for an idea bundle. Implementations return
	// ErrMissingCredential, *APIError or *ParseError on failure and must
	// honor ctx cancellation.
	Complete(ctx context.Context, system, user string) (idea.Bundle, error)
}

// Settings configures a provider adapter. Credentials are always passed in
// explicitly; adapters never consult the environment.
type Settings struct {
	APIKey  string
	Model   string
	BaseURL string

	// HTTPClient overrides the transport. Nil uses a client with
	// DefaultHTTPTimeout.
	HTTPClient *http.Client
}

// DefaultHTTPTimeout bounds a single HTTP exchange when no client is given.
// The orchestrator applies its own, usually shorter, per-attempt deadline.
const DefaultHTTPTimeout = 120 * time.Second

// Temperature is the sampling temperature sent to every provider.
const Temperature = 0.7

// MaxOutputTokens caps completion length where the API requires a cap.
const MaxOutputTokens = 4096

func (s Settings) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: DefaultHTTPTimeout}
}

func (s Settings) modelOr(def string) string {
	if s.Model != "" {
		return s.Model
	}
	return def
}
