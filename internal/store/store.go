// Package store persists chats, messages, recipes and eval results.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/recipe"
)

// DefaultDBPath is the default relative path for the SQLite DB.
const DefaultDBPath = ".ideaengine/ideaengine.db"

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Feedback is a user's verdict on an assistant message.
type Feedback string

const (
	FeedbackHelpful    Feedback = "helpful"
	FeedbackNotHelpful Feedback = "not_helpful"
	FeedbackFollowUp   Feedback = "follow_up_needed"
)

// IsValid reports whether f is a known feedback value.
func (f Feedback) IsValid() bool {
	switch f {
	case FeedbackHelpful, FeedbackNotHelpful, FeedbackFollowUp:
		return true
	}
	return false
}

// Chat is a conversation thread, optionally bound to a recipe.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	RecipeID  string    `json:"recipeId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one turn in a chat. Assistant messages carry the ranked
// bundles they reported.
type Message struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chatId"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Bundles   []idea.Bundle `json:"ideaBundles,omitempty"`
	Feedback  Feedback      `json:"feedback,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// EvalResult records how a recipe scored on one problem. Delta is the
// change against the previous result for the same pair, nil on first run.
type EvalResult struct {
	ID        string          `json:"id"`
	RecipeID  string          `json:"recipeId"`
	ProblemID string          `json:"problemId"`
	BundleID  string          `json:"bundleId"`
	Card      rank.ScoreCard  `json:"scoreCard"`
	Delta     *rank.ScoreCard `json:"delta,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Store is the persistence facade used by the engine, the HTTP API and the
// eval runner.
type Store interface {
	// Chats
	CreateChat(ctx context.Context, title, recipeID string) (*Chat, error)
	GetChat(ctx context.Context, id string) (*Chat, error)
	ListChats(ctx context.Context) ([]Chat, error)
	// Messages
	InsertMessage(ctx context.Context, m *Message) error
	ChatMessages(ctx context.Context, chatID string) ([]Message, error)
	SetFeedback(ctx context.Context, messageID string, f Feedback) error
	// Recipes
	SaveRecipe(ctx context.Context, r recipe.Recipe) error
	GetRecipe(ctx context.Context, id string) (*recipe.Recipe, error)
	ListRecipes(ctx context.Context) ([]recipe.Recipe, error)
	// Eval results
	SaveEvalResult(ctx context.Context, r *EvalResult) error
	LatestEvalResult(ctx context.Context, recipeID, problemID string) (*EvalResult, error)
	ListEvalResults(ctx context.Context, recipeID string) ([]EvalResult, error)

	Close() error
}
