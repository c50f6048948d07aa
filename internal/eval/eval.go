// Package eval replays a fixed problem set against a recipe and records how
// the best bundle scored, so recipe edits can be compared run over run.
package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/ideaengine/internal/engine"
	"github.com/dusk-indust/ideaengine/internal/logging"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
	"github.com/dusk-indust/ideaengine/internal/store"
)

// Problem is one eval case. Prompt is sent as-is when set; otherwise Vars
// fill the recipe template.
type Problem struct {
	ID     string            `yaml:"id" json:"id"`
	Prompt string            `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Vars   map[string]string `yaml:"vars,omitempty" json:"vars,omitempty"`
}

// Failure is a problem that produced no bundle.
type Failure struct {
	ProblemID string                       `json:"problemId"`
	Err       string                       `json:"error,omitempty"`
	Errors    []orchestrator.ProviderError `json:"providerErrors,omitempty"`
}

// Report collects one eval run.
type Report struct {
	RecipeID string             `json:"recipeId"`
	Results  []store.EvalResult `json:"results"`
	Failures []Failure          `json:"failures"`
}

// Runner executes eval runs.
type Runner struct {
	engine *engine.Engine
	store  store.Store
	logger *slog.Logger
}

// NewRunner creates a Runner that generates through e and records into the
// engine's store.
func NewRunner(e *engine.Engine) *Runner {
	return &Runner{engine: e, store: e.Store(), logger: logging.New("eval")}
}

// LoadProblems reads a YAML list of problems.
func LoadProblems(path string) ([]Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problems: %w", err)
	}
	var problems []Problem
	if err := yaml.Unmarshal(data, &problems); err != nil {
		return nil, fmt.Errorf("parse problems %s: %w", path, err)
	}
	seen := make(map[string]bool, len(problems))
	for i, p := range problems {
		if p.ID == "" {
			return nil, fmt.Errorf("problem %d: id is required", i+1)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("problem %q: duplicate id", p.ID)
		}
		seen[p.ID] = true
	}
	return problems, nil
}

// Run evaluates recipeID on every problem in order. A problem whose run
// yields no bundle is reported as a failure and the run continues; a
// missing recipe or provider set aborts the run.
func (r *Runner) Run(ctx context.Context, recipeID string, problems []Problem, providers []string) (*Report, error) {
	if _, err := r.engine.Recipe(ctx, recipeID); err != nil {
		return nil, err
	}
	rep := &Report{RecipeID: recipeID, Results: []store.EvalResult{}, Failures: []Failure{}}

	for _, p := range problems {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := r.engine.Generate(ctx, engine.GenerateInput{
			Prompt:    p.Prompt,
			RecipeID:  recipeID,
			Vars:      p.Vars,
			Providers: providers,
		})
		if errors.Is(err, engine.ErrNoProviders) {
			return rep, err
		}
		if err != nil {
			rep.Failures = append(rep.Failures, Failure{ProblemID: p.ID, Err: err.Error()})
			continue
		}
		if len(res.Bundles) == 0 {
			rep.Failures = append(rep.Failures, Failure{ProblemID: p.ID, Errors: res.Errors})
			continue
		}

		prev, err := r.store.LatestEvalResult(ctx, recipeID, p.ID)
		if err != nil {
			return rep, err
		}
		result := store.EvalResult{
			RecipeID:  recipeID,
			ProblemID: p.ID,
			BundleID:  res.Bundles[0].ID,
			Card:      res.Cards[0],
		}
		if prev != nil {
			d := result.Card.Sub(prev.Card)
			result.Delta = &d
		}
		if err := r.store.SaveEvalResult(ctx, &result); err != nil {
			return rep, err
		}
		r.logger.Info("problem scored",
			slog.String("recipe", recipeID),
			slog.String("problem", p.ID),
			slog.Float64("total", result.Card.Total),
		)
		rep.Results = append(rep.Results, result)
	}
	return rep, nil
}
