package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/ideaengine/internal/engine"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
	"github.com/dusk-indust/ideaengine/internal/store"
)

func newChatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List chats, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			chats, err := e.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			if len(chats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No chats yet. Start one with 'ideaengine chats new'.")
				return nil
			}
			renderChats(cmd.OutOrStdout(), chats)
			return nil
		},
	}
	cmd.AddCommand(newChatsNewCmd(a))
	cmd.AddCommand(newChatsMessagesCmd(a))
	cmd.AddCommand(newChatsSendCmd(a))
	cmd.AddCommand(newChatsFeedbackCmd(a))
	return cmd
}

func newChatsNewCmd(a *app) *cobra.Command {
	var recipeID string
	cmd := &cobra.Command{
		Use:   "new [title...]",
		Short: "Start a chat, optionally bound to a recipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			chat, err := e.CreateChat(cmd.Context(), strings.Join(args, " "), recipeID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), chat.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&recipeID, "recipe", "r", "", "Recipe the chat uses by default")
	return cmd
}

func newChatsMessagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "messages <chat-id>",
		Short: "Show a chat's messages, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			msgs, err := e.ChatMessages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderMessages(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
}

func newChatsSendCmd(a *app) *cobra.Command {
	var (
		providers []string
		recipeID  string
		rawVars   []string
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "send <chat-id> [message...]",
		Short: "Send a message to a chat and store the ranked reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseVars(rawVars)
			if err != nil {
				return err
			}
			var extra []orchestrator.Option
			if !quiet {
				extra = append(extra, orchestrator.WithProgress(progressPrinter(cmd.ErrOrStderr())))
			}
			e, err := a.engine(extra...)
			if err != nil {
				return err
			}
			out, err := e.SendMessage(cmd.Context(), engine.SendMessageInput{
				ChatID:    args[0],
				Content:   strings.Join(args[1:], " "),
				Providers: providers,
				RecipeID:  recipeID,
				Vars:      vars,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(out.Bundles) > 0 {
				renderBundles(w, out.Bundles, out.Scores)
			}
			renderProviderErrors(w, out.Errors)
			fmt.Fprintln(w, out.Content)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVarP(&providers, "providers", "p", nil, "Providers to query (default: every provider with a key)")
	fl.StringVarP(&recipeID, "recipe", "r", "", "Recipe id (default: the chat's recipe)")
	fl.StringArrayVar(&rawVars, "var", nil, "Recipe template variable as key=value (repeatable)")
	fl.BoolVarP(&quiet, "quiet", "q", false, "Do not print provider progress")
	return cmd
}

func newChatsFeedbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <message-id> <helpful|not_helpful|follow_up_needed>",
		Short: "Record feedback on an assistant message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			return e.SetFeedback(cmd.Context(), args[0], store.Feedback(args[1]))
		},
	}
}
