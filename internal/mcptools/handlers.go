package mcptools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/ideaengine/internal/engine"
	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
	"github.com/dusk-indust/ideaengine/internal/rank"
)

// Service handles MCP tool calls by delegating to an Engine.
type Service struct {
	engine *engine.Engine
}

// NewService creates a Service over e.
func NewService(e *engine.Engine) *Service {
	return &Service{engine: e}
}

// GenerateIdeas runs the fan-out, recording it in a chat when ChatID is set.
func (s *Service) GenerateIdeas(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateIdeasInput,
) (*mcp.CallToolResult, GenerateIdeasOutput, error) {
	if input.ChatID != "" {
		out, err := s.engine.SendMessage(ctx, engine.SendMessageInput{
			ChatID:       input.ChatID,
			Content:      input.Prompt,
			SystemPrompt: input.SystemPrompt,
			Providers:    input.Providers,
			RecipeID:     input.RecipeID,
			Vars:         input.Vars,
		})
		if err != nil {
			return nil, GenerateIdeasOutput{}, err
		}
		res := orchestrator.Result{Bundles: out.Bundles, Cards: out.Scores, Errors: out.Errors}
		o := toOutput(res)
		o.MessageID = out.MessageID
		return nil, o, nil
	}

	res, err := s.engine.Generate(ctx, engine.GenerateInput{
		Prompt:       input.Prompt,
		SystemPrompt: input.SystemPrompt,
		Providers:    input.Providers,
		RecipeID:     input.RecipeID,
		Vars:         input.Vars,
	})
	if err != nil {
		return nil, GenerateIdeasOutput{}, err
	}
	return nil, toOutput(res), nil
}

func toOutput(res orchestrator.Result) GenerateIdeasOutput {
	out := GenerateIdeasOutput{
		Summary: engine.Summarize(res),
		Bundles: make([]RankedBundle, 0, len(res.Bundles)),
		Errors:  make([]ProviderIssue, 0, len(res.Errors)),
	}
	for i, b := range res.Bundles {
		var card rank.ScoreCard
		if i < len(res.Cards) {
			card = res.Cards[i]
		}
		out.Bundles = append(out.Bundles, flatten(i+1, card.Total, b))
	}
	for _, pe := range res.Errors {
		out.Errors = append(out.Errors, ProviderIssue{Provider: pe.Provider, Kind: string(pe.Kind), Message: pe.Message})
	}
	return out
}

func flatten(pos int, score float64, b idea.Bundle) RankedBundle {
	return RankedBundle{
		Rank:         pos,
		Score:        score,
		Provider:     b.Provider,
		Model:        b.Model,
		Ideas:        b.Ideas,
		StepPlan:     b.StepPlan,
		Risks:        b.Risks,
		Dependencies: b.Dependencies,
		Effort:       b.Effort,
		NextActions:  b.NextActions,
	}
}

// ListRecipes lists every recipe the engine knows.
func (s *Service) ListRecipes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListRecipesInput,
) (*mcp.CallToolResult, ListRecipesOutput, error) {
	recipes, err := s.engine.ListRecipes(ctx)
	if err != nil {
		return nil, ListRecipesOutput{}, err
	}
	out := ListRecipesOutput{Recipes: make([]RecipeSummary, 0, len(recipes))}
	for _, r := range recipes {
		vars := r.Variables()
		if vars == nil {
			vars = []string{}
		}
		out.Recipes = append(out.Recipes, RecipeSummary{ID: r.ID, Name: r.Name, Variables: vars, Source: r.Source})
	}
	return nil, out, nil
}

// ListChats lists stored chats, newest activity first.
func (s *Service) ListChats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListChatsInput,
) (*mcp.CallToolResult, ListChatsOutput, error) {
	chats, err := s.engine.ListChats(ctx)
	if err != nil {
		return nil, ListChatsOutput{}, err
	}
	if input.Limit > 0 && len(chats) > input.Limit {
		chats = chats[:input.Limit]
	}
	out := ListChatsOutput{Chats: make([]ChatSummary, 0, len(chats))}
	for _, c := range chats {
		out.Chats = append(out.Chats, ChatSummary{
			ID:        c.ID,
			Title:     c.Title,
			RecipeID:  c.RecipeID,
			UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// ProviderStatus reports registered providers and their credential state.
func (s *Service) ProviderStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ProviderStatusInput,
) (*mcp.CallToolResult, ProviderStatusOutput, error) {
	infos := s.engine.ProviderStatus()
	out := ProviderStatusOutput{Providers: make([]ProviderState, len(infos))}
	for i, p := range infos {
		out.Providers[i] = ProviderState(p)
	}
	return nil, out, nil
}
