package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/ideaengine/internal/engine"
	"github.com/dusk-indust/ideaengine/internal/export"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
)

type generateFlags struct {
	providers []string
	recipeID  string
	vars      []string
	system    string
	format    string
	quiet     bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Send a prompt to the providers and print the ranked bundles",
		Long: `Send a prompt to every selected provider in parallel and print the ranked
idea bundles. Nothing is stored.

With --recipe the recipe's system prompt and rubric are used, and when no
prompt is given its template is rendered from --var values.

Examples:
  ideaengine generate "weekend project ideas for a home lab"
  ideaengine generate "plan a meetup" --providers openai,gemini --format md
  ideaengine generate --recipe youtube-playlist-auto-translate \
      --var playlistUrl=https://youtube.com/playlist?list=PL123 --var targetLanguage=es`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a, f, strings.Join(args, " "))
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVarP(&f.providers, "providers", "p", nil, "Providers to query (default: every provider with a key)")
	fl.StringVarP(&f.recipeID, "recipe", "r", "", "Recipe id")
	fl.StringArrayVar(&f.vars, "var", nil, "Recipe template variable as key=value (repeatable)")
	fl.StringVar(&f.system, "system", "", "System prompt override")
	fl.StringVarP(&f.format, "format", "f", formatTable, "Output format: table, json, md, html")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print provider progress")
	return cmd
}

func runGenerate(cmd *cobra.Command, a *app, f generateFlags, prompt string) error {
	vars, err := parseVars(f.vars)
	if err != nil {
		return err
	}

	var extra []orchestrator.Option
	if !f.quiet {
		extra = append(extra, orchestrator.WithProgress(progressPrinter(cmd.ErrOrStderr())))
	}
	e, err := a.engine(extra...)
	if err != nil {
		return err
	}

	res, err := e.Generate(cmd.Context(), engine.GenerateInput{
		Prompt:       prompt,
		SystemPrompt: f.system,
		Providers:    f.providers,
		RecipeID:     f.recipeID,
		Vars:         vars,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.format != formatTable {
		return writeIdeas(out, f.format, export.FromRanked("ideaengine", prompt, res.Bundles, res.Cards))
	}
	if len(res.Bundles) > 0 {
		renderBundles(out, res.Bundles, res.Cards)
	}
	renderProviderErrors(out, res.Errors)
	fmt.Fprintln(out, engine.Summarize(res))
	return nil
}

// progressPrinter serializes progress lines from the provider goroutines.
func progressPrinter(w io.Writer) func(orchestrator.ProgressEvent) {
	var mu sync.Mutex
	return func(ev orchestrator.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, orchestrator.FormatProgress(ev))
	}
}

// parseVars turns repeated key=value flags into a map. Later keys win.
func parseVars(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q: want key=value", kv)
		}
		vars[k] = v
	}
	return vars, nil
}
