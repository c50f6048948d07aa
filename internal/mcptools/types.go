package mcptools

import "github.com/dusk-indust/ideaengine/internal/idea"

// GenerateIdeasInput is the input for the generate_ideas MCP tool.
type GenerateIdeasInput struct {
	Prompt       string            `json:"prompt,omitempty" jsonschema:"the problem to generate ideas for; may be empty when recipeId and vars are given"`
	SystemPrompt string            `json:"systemPrompt,omitempty" jsonschema:"system prompt override"`
	Providers    []string          `json:"providers,omitempty" jsonschema:"provider ids to query (default: every provider with a credential)"`
	RecipeID     string            `json:"recipeId,omitempty" jsonschema:"recipe supplying the system prompt, template and rubric"`
	Vars         map[string]string `json:"vars,omitempty" jsonschema:"values for the recipe template placeholders"`
	ChatID       string            `json:"chatId,omitempty" jsonschema:"chat to record the exchange in"`
}

// GenerateIdeasOutput is the result of the generate_ideas MCP tool.
type GenerateIdeasOutput struct {
	Summary   string          `json:"summary"`
	MessageID string          `json:"messageId,omitempty"`
	Bundles   []RankedBundle  `json:"bundles"`
	Errors    []ProviderIssue `json:"errors"`
}

// RankedBundle is a bundle flattened for tool output.
type RankedBundle struct {
	Rank         int                 `json:"rank"`
	Score        float64             `json:"score"`
	Provider     string              `json:"provider"`
	Model        string              `json:"model"`
	Ideas        []idea.Idea         `json:"ideas"`
	StepPlan     []idea.Step         `json:"step_plan"`
	Risks        []idea.Risk         `json:"risks"`
	Dependencies []string            `json:"dependencies"`
	Effort       idea.EffortEstimate `json:"effort"`
	NextActions  []idea.NextAction   `json:"next_actions"`
}

// ProviderIssue is a provider that returned nothing.
type ProviderIssue struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// ListRecipesInput is the input for the list_recipes MCP tool.
type ListRecipesInput struct{}

// ListRecipesOutput is the result of the list_recipes MCP tool.
type ListRecipesOutput struct {
	Recipes []RecipeSummary `json:"recipes"`
}

// RecipeSummary is a brief overview of one recipe.
type RecipeSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Variables []string `json:"variables"`
	Source    string   `json:"source,omitempty"`
}

// ListChatsInput is the input for the list_chats MCP tool.
type ListChatsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of chats to return (default: all)"`
}

// ListChatsOutput is the result of the list_chats MCP tool.
type ListChatsOutput struct {
	Chats []ChatSummary `json:"chats"`
}

// ChatSummary is a brief overview of one chat.
type ChatSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	RecipeID  string `json:"recipeId,omitempty"`
	UpdatedAt string `json:"updatedAt"`
}

// ProviderStatusInput is the input for the provider_status MCP tool.
type ProviderStatusInput struct{}

// ProviderStatusOutput is the result of the provider_status MCP tool.
type ProviderStatusOutput struct {
	Providers []ProviderState `json:"providers"`
}

// ProviderState mirrors engine.ProviderInfo.
type ProviderState struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
	Keyless    bool   `json:"keyless"`
}
