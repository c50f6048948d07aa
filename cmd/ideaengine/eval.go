package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/ideaengine/internal/eval"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/store"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		recipeID  string
		problems  string
		providers []string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a recipe against a problem set and record the results",
		Long: `Run every problem in a YAML problem set through a recipe, store the top
bundle's score card per problem and show the change since the previous run.

Problem file format:
  - id: es-short
    vars:
      playlistUrl: https://youtube.com/playlist?list=PL123
      targetLanguage: es
  - id: free-form
    prompt: Translate my cooking channel into Japanese`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps, err := eval.LoadProblems(problems)
			if err != nil {
				return err
			}
			e, err := a.engine()
			if err != nil {
				return err
			}
			rep, err := eval.NewRunner(e).Run(cmd.Context(), recipeID, ps, providers)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			renderEvalResults(out, rep.Results)
			for _, f := range rep.Failures {
				msg := f.Err
				if msg == "" {
					msg = fmt.Sprintf("%d provider(s) failed", len(f.Errors))
				}
				fmt.Fprintf(out, "%s: no bundle: %s\n", f.ProblemID, msg)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&recipeID, "recipe", "r", "", "Recipe id (required)")
	fl.StringVar(&problems, "problems", "", "Path to the YAML problem set (required)")
	fl.StringSliceVarP(&providers, "providers", "p", nil, "Providers to query (default: every provider with a key)")
	fl.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("recipe")
	_ = cmd.MarkFlagRequired("problems")

	cmd.AddCommand(newEvalHistoryCmd(a))
	return cmd
}

func newEvalHistoryCmd(a *app) *cobra.Command {
	var recipeID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored eval results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			results, err := e.Store().ListEvalResults(cmd.Context(), recipeID)
			if err != nil {
				return err
			}
			renderEvalResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringVarP(&recipeID, "recipe", "r", "", "Only this recipe")
	return cmd
}

func renderEvalResults(w io.Writer, results []store.EvalResult) {
	header := []any{"Recipe", "Problem", "When"}
	for _, d := range rank.Dimensions() {
		header = append(header, d.String())
	}
	header = append(header, "Total", "Δ Total")

	t := newTable(w, header...)
	for _, r := range results {
		row := table.Row{r.RecipeID, r.ProblemID, stamp(r.CreatedAt)}
		for _, d := range rank.Dimensions() {
			row = append(row, fmt.Sprintf("%.1f", r.Card.Get(d)))
		}
		delta := "-"
		if r.Delta != nil {
			delta = fmt.Sprintf("%+.2f", r.Delta.Total)
		}
		row = append(row, fmt.Sprintf("%.2f", r.Card.Total), delta)
		t.AppendRow(row)
	}
	t.Render()
}
