package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/ideaengine/internal/recipe"
)

func newRecipesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List the available recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			rs, err := e.ListRecipes(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "ID", "Name", "Source", "Variables", "Rubric")
			for _, r := range rs {
				vars := strings.Join(r.Variables(), ", ")
				if vars == "" {
					vars = "-"
				}
				rubric := "default"
				if len(r.Rubric) > 0 {
					rubric = "custom"
				}
				t.AppendRow(table.Row{r.ID, r.Name, r.Source, vars, rubric})
			}
			t.Render()
			return nil
		},
	}
	cmd.AddCommand(newRecipesImportCmd(a))
	return cmd
}

func newRecipesImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.toml>...",
		Short: "Validate recipe files and save them to the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				r, err := recipe.Parse(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := e.SaveRecipe(cmd.Context(), r); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", r.ID, r.Name)
			}
			return nil
		},
	}
}
