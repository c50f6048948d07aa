// Package engine is the command layer shared by the CLI, the HTTP API and
// the MCP server. It resolves providers and recipes, runs the orchestrator
// and persists the conversation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/logging"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
	"github.com/dusk-indust/ideaengine/internal/provider"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/recipe"
	"github.com/dusk-indust/ideaengine/internal/store"
)

var (
	// ErrNoProviders means none of the requested providers can be called.
	ErrNoProviders = errors.New("no providers enabled: add API keys in settings")

	// ErrEmptyPrompt is returned when there is nothing to send.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// Engine wires the registry, credentials, recipes and store together.
type Engine struct {
	store    store.Store
	registry *provider.Registry
	settings map[string]provider.Settings
	recipes  []recipe.Recipe
	rubric   rank.Rubric
	orchOpts []orchestrator.Option
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings sets the resolved per-provider credentials and overrides.
func WithSettings(s map[string]provider.Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithRecipes sets the recipes available besides the stored ones.
func WithRecipes(rs []recipe.Recipe) Option {
	return func(e *Engine) { e.recipes = rs }
}

// WithDefaultRubric sets the rubric used when neither the request nor its
// recipe names one.
func WithDefaultRubric(r rank.Rubric) Option {
	return func(e *Engine) { e.rubric = r }
}

// WithOrchestratorOptions passes dispatch options to every run.
func WithOrchestratorOptions(opts ...orchestrator.Option) Option {
	return func(e *Engine) { e.orchOpts = append(e.orchOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. A nil registry uses the built-in providers.
func New(st store.Store, reg *provider.Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = provider.NewRegistry()
	}
	e := &Engine{
		store:    st,
		registry: reg,
		settings: map[string]provider.Settings{},
		rubric:   rank.DefaultRubric,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.New("engine")
	}
	return e
}

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.store }

// DefaultRubric returns the rubric used when a request names none.
func (e *Engine) DefaultRubric() rank.Rubric { return e.rubric }

// GenerateInput is a one-shot request.
type GenerateInput struct {
	// Prompt is the user prompt. When RecipeID and Vars are set and Prompt is
	// empty, the recipe template is rendered instead.
	Prompt       string
	SystemPrompt string
	Providers    []string
	Rubric       *rank.Rubric
	RecipeID     string
	Vars         map[string]string

	// Progress, when set, receives this run's progress events in addition
	// to any callback configured on the engine.
	Progress func(orchestrator.ProgressEvent)
}

// request is a fully resolved run.
type request struct {
	system    string
	prompt    string
	rubric    rank.Rubric
	providers []provider.Provider
	progress  func(orchestrator.ProgressEvent)
}

// Generate runs the providers without touching the store.
func (e *Engine) Generate(ctx context.Context, in GenerateInput) (orchestrator.Result, error) {
	req, err := e.prepare(ctx, in)
	if err != nil {
		return orchestrator.Result{}, err
	}
	return e.run(ctx, req), nil
}

func (e *Engine) prepare(ctx context.Context, in GenerateInput) (*request, error) {
	req := &request{
		system:   in.SystemPrompt,
		prompt:   strings.TrimSpace(in.Prompt),
		rubric:   e.rubric,
		progress: in.Progress,
	}

	if in.RecipeID != "" {
		r, err := e.Recipe(ctx, in.RecipeID)
		if err != nil {
			return nil, err
		}
		if req.system == "" {
			req.system = r.SystemPromptWithExamples()
		}
		if req.prompt == "" {
			rendered, err := r.Render(in.Vars)
			if err != nil {
				return nil, fmt.Errorf("recipe %s: %w", r.ID, err)
			}
			req.prompt = rendered
		}
		w, err := r.Weights()
		if err != nil {
			return nil, fmt.Errorf("recipe %s: %w", r.ID, err)
		}
		req.rubric = w
	}
	if in.Rubric != nil {
		if err := in.Rubric.Validate(); err != nil {
			return nil, err
		}
		req.rubric = *in.Rubric
	}
	if req.prompt == "" {
		return nil, ErrEmptyPrompt
	}

	providers, err := e.selectProviders(in.Providers)
	if err != nil {
		return nil, err
	}
	req.providers = providers
	return req, nil
}

// selectProviders resolves ids, or every provider with a credential when
// ids is empty. It fails when nothing can be dispatched.
func (e *Engine) selectProviders(ids []string) ([]provider.Provider, error) {
	if len(ids) == 0 {
		for _, st := range e.ProviderStatus() {
			if st.Configured && !st.Keyless {
				ids = append(ids, st.ID)
			}
		}
	}
	sel := e.registry.Build(ids, e.settings)
	if len(sel.Unknown) > 0 {
		e.logger.Warn("ignoring unknown providers", slog.Any("ids", sel.Unknown))
	}
	if sel.Ready() == 0 {
		return nil, ErrNoProviders
	}
	return sel.Providers, nil
}

func (e *Engine) run(ctx context.Context, req *request) orchestrator.Result {
	o := orchestrator.New(req.providers, e.orchOpts...)
	if req.progress != nil {
		base, extra := o.Config().OnProgress, req.progress
		opts := append(e.orchOpts[:len(e.orchOpts):len(e.orchOpts)], orchestrator.WithProgress(func(ev orchestrator.ProgressEvent) {
			if base != nil {
				base(ev)
			}
			extra(ev)
		}))
		o = orchestrator.New(req.providers, opts...)
	}
	return o.Run(ctx, req.system, req.prompt, &req.rubric)
}

// Summarize renders the assistant's reply text for a run.
func Summarize(res orchestrator.Result) string {
	errs := make([]string, len(res.Errors))
	for i, pe := range res.Errors {
		errs[i] = pe.Provider + ": " + pe.Message
	}
	if len(res.Bundles) == 0 {
		return "No ideas generated. Errors: " + strings.Join(errs, "; ")
	}
	s := fmt.Sprintf("Generated %d idea bundle(s). %s", len(res.Bundles), strings.Join(errs, "; "))
	return strings.TrimSpace(s)
}

// stripRaw drops provider transcripts before bundles are persisted.
func stripRaw(bundles []idea.Bundle) []idea.Bundle {
	out := make([]idea.Bundle, len(bundles))
	for i, b := range bundles {
		b.RawResponse = ""
		out[i] = b
	}
	return out
}
