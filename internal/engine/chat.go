package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/store"
)

// SendMessageInput is a user turn in an existing chat.
type SendMessageInput struct {
	ChatID       string            `json:"chatId"`
	Content      string            `json:"content"`
	SystemPrompt string            `json:"systemPrompt,omitempty"`
	Providers    []string          `json:"providers,omitempty"`
	Rubric       *rank.Rubric      `json:"rubric,omitempty"`
	RecipeID     string            `json:"recipeId,omitempty"`
	Vars         map[string]string `json:"vars,omitempty"`
}

// SendMessageOutput is the assistant's reply.
type SendMessageOutput struct {
	MessageID string                       `json:"messageId"`
	Content   string                       `json:"content"`
	Bundles   []idea.Bundle                `json:"ideaBundles"`
	Scores    []rank.ScoreCard             `json:"scores"`
	Errors    []orchestrator.ProviderError `json:"errors"`
}

// CreateChat starts a conversation, optionally bound to a recipe.
func (e *Engine) CreateChat(ctx context.Context, title, recipeID string) (*store.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New chat"
	}
	if recipeID != "" {
		if _, err := e.Recipe(ctx, recipeID); err != nil {
			return nil, err
		}
	}
	return e.store.CreateChat(ctx, title, recipeID)
}

// ListChats returns chats, most recently active first.
func (e *Engine) ListChats(ctx context.Context) ([]store.Chat, error) {
	return e.store.ListChats(ctx)
}

// ChatMessages returns a chat's messages, oldest first.
func (e *Engine) ChatMessages(ctx context.Context, chatID string) ([]store.Message, error) {
	if _, err := e.store.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	return e.store.ChatMessages(ctx, chatID)
}

// SetFeedback records the user's verdict on a message.
func (e *Engine) SetFeedback(ctx context.Context, messageID string, f store.Feedback) error {
	return e.store.SetFeedback(ctx, messageID, f)
}

// SendMessage stores the user's turn, fans it out to the providers and
// stores the assistant's summary together with the ranked bundles. A
// chat bound to a recipe uses that recipe unless the input names another.
func (e *Engine) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	chat, err := e.store.GetChat(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}

	gen := GenerateInput{
		Prompt:       in.Content,
		SystemPrompt: in.SystemPrompt,
		Providers:    in.Providers,
		Rubric:       in.Rubric,
		RecipeID:     in.RecipeID,
		Vars:         in.Vars,
	}
	if gen.RecipeID == "" {
		gen.RecipeID = chat.RecipeID
	}

	// Resolve the recipe template first so the stored turn is the prompt
	// that was actually sent.
	if strings.TrimSpace(gen.Prompt) == "" && gen.RecipeID != "" {
		r, err := e.Recipe(ctx, gen.RecipeID)
		if err != nil {
			return nil, err
		}
		if gen.Prompt, err = r.Render(gen.Vars); err != nil {
			return nil, fmt.Errorf("recipe %s: %w", r.ID, err)
		}
	}
	if strings.TrimSpace(gen.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	userMsg := &store.Message{ChatID: chat.ID, Role: store.RoleUser, Content: gen.Prompt}
	if err := e.store.InsertMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	req, err := e.prepare(ctx, gen)
	if err != nil {
		return nil, err
	}
	res := e.run(ctx, req)

	content := Summarize(res)
	asst := &store.Message{
		ChatID:  chat.ID,
		Role:    store.RoleAssistant,
		Content: content,
		Bundles: stripRaw(res.Bundles),
	}
	if err := e.store.InsertMessage(ctx, asst); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	e.logger.Info("message answered",
		slog.String("chat", chat.ID),
		slog.Int("bundles", len(res.Bundles)),
		slog.Int("errors", len(res.Errors)),
	)
	return &SendMessageOutput{
		MessageID: asst.ID,
		Content:   content,
		Bundles:   res.Bundles,
		Scores:    res.Cards,
		Errors:    res.Errors,
	}, nil
}
