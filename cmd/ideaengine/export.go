package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/ideaengine/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <chat-id>",
		Short: "Export the latest ranked bundles of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			chat, err := e.Store().GetChat(ctx, args[0])
			if err != nil {
				return err
			}
			msgs, err := e.ChatMessages(ctx, chat.ID)
			if err != nil {
				return err
			}
			doc, err := export.FromChat(*chat, msgs, e.DefaultRubric())
			if err != nil {
				return err
			}

			if output == "" {
				return writeIdeas(cmd.OutOrStdout(), format, doc)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := writeIdeas(f, format, doc); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatMD, "Output format: json, md, html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
