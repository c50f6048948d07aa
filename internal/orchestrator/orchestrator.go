package orchestrator

import (
	"context"
	"log/slog"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/provider"
	"github.com/dusk-indust/ideaengine/internal/rank"
)

// ProviderError describes a provider that produced no bundle.
type ProviderError struct {
	Provider string             `json:"provider"`
	Kind     provider.ErrorKind `json:"kind"`
	Message  string             `json:"error"`
	Attempts int                `json:"attempts"`
}

// Result is the outcome of one Run. Bundles are ranked and de-duplicated;
// Cards[i] is the score card of Bundles[i]. Errors follow the order the
// providers were configured in.
type Result struct {
	Bundles []idea.Bundle    `json:"bundles"`
	Cards   []rank.ScoreCard `json:"scores"`
	Errors  []ProviderError  `json:"errors"`
}

// Orchestrator sends one prompt to a fixed set of providers and merges
// whatever comes back.
type Orchestrator struct {
	providers []provider.Provider
	cfg       Config
}

// New creates an Orchestrator over providers. The slice order is the
// reporting order for errors and the tie-break order for ranking.
func New(providers []provider.Provider, opts ...Option) *Orchestrator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{providers: providers, cfg: cfg.withDefaults()}
}

// Providers returns the configured providers.
func (o *Orchestrator) Providers() []provider.Provider {
	return o.providers
}

// Config returns the effective dispatch policy.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run fans the prompt out, waits for every provider to finish or give up,
// then ranks the successful bundles with rubric (nil for the default).
// Run never fails as a whole: provider failures are reported in Errors.
func (o *Orchestrator) Run(ctx context.Context, system, user string, rubric *rank.Rubric) Result {
	outcomes := NewFanOut(o.cfg).Run(ctx, o.providers, system, user)

	res := Result{
		Bundles: []idea.Bundle{},
		Cards:   []rank.ScoreCard{},
		Errors:  []ProviderError{},
	}
	var ok []idea.Bundle
	for _, oc := range outcomes {
		if oc.Err != nil {
			res.Errors = append(res.Errors, ProviderError{
				Provider: oc.Provider,
				Kind:     provider.Kind(oc.Err),
				Message:  oc.Err.Error(),
				Attempts: oc.Attempts,
			})
			continue
		}
		ok = append(ok, oc.Bundle)
	}

	if len(ok) > 0 {
		for _, s := range rank.NewRanker(rubric).RankScored(ok) {
			res.Bundles = append(res.Bundles, s.Bundle)
			res.Cards = append(res.Cards, s.Card)
		}
	}

	o.cfg.Logger.Info("fan-out finished",
		slog.Int("providers", len(o.providers)),
		slog.Int("bundles", len(res.Bundles)),
		slog.Int("errors", len(res.Errors)),
	)
	return res
}
