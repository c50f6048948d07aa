package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/ideaengine/internal/config"
	"github.com/dusk-indust/ideaengine/internal/engine"
	"github.com/dusk-indust/ideaengine/internal/logging"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
	"github.com/dusk-indust/ideaengine/internal/recipe"
	"github.com/dusk-indust/ideaengine/internal/store"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configDir string
	logLevel  string
	logFormat string

	cfg   *config.ProjectConfig
	store *store.SQLStore
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ideaengine",
		Short: "Fan a prompt out to several model providers and rank the ideas",
		Long: `ideaengine sends one prompt to every configured model provider in parallel,
parses each reply into an idea bundle (ideas, step plan, risks, effort and next
actions) and ranks the bundles with a weighted rubric.

Provider keys are read from the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY,
GEMINI_API_KEY) or from ideaengine.yml in the config directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", ".", "Directory holding ideaengine.yml")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text or json (default from config)")

	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newServeMCPCmd(a))
	root.AddCommand(newChatsCmd(a))
	root.AddCommand(newRecipesCmd(a))
	root.AddCommand(newEvalCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// setup loads the project config and configures logging. Flags given on the
// command line win over the config file.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg.Defaults()

	if a.logLevel != "" {
		a.cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.LogFormat = a.logFormat
	}
	level, err := logging.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, a.cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}

// path resolves p against the config directory unless it is absolute.
func (a *app) path(p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.configDir, p)
}

// engine opens the store on first use and builds an engine over it. extra
// options are applied after the configured dispatch policy.
func (a *app) engine(extra ...orchestrator.Option) (*engine.Engine, error) {
	if a.store == nil {
		st, err := store.Open(a.path(a.cfg.Database))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
	}

	recipes, err := a.recipes()
	if err != nil {
		return nil, err
	}
	rubric, err := a.cfg.DefaultRubric()
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithTimeout(a.cfg.Timeout),
		orchestrator.WithRetries(a.cfg.RetryCount()),
		orchestrator.WithBackoff(a.cfg.Backoff),
	}
	opts = append(opts, extra...)

	return engine.New(a.store, nil,
		engine.WithSettings(a.cfg.Resolve()),
		engine.WithRecipes(recipes),
		engine.WithDefaultRubric(rubric),
		engine.WithOrchestratorOptions(opts...),
	), nil
}

// recipes returns the built-in recipes overlaid with the project's recipe
// directory.
func (a *app) recipes() ([]recipe.Recipe, error) {
	builtins, err := recipe.Builtins()
	if err != nil {
		return nil, fmt.Errorf("load built-in recipes: %w", err)
	}
	if a.cfg.RecipesDir == "" {
		return builtins, nil
	}
	local, err := recipe.LoadDir(a.path(a.cfg.RecipesDir))
	if err != nil {
		return nil, err
	}
	return recipe.Merge(builtins, local), nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
