package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/ideaengine/internal/idea"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/recipe"
)

func openTest(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "ideaengine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	c, err := s.CreateChat(ctx, "first", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetChat(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
}

func TestChats_ListOrderedByActivity(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	a, err := s.CreateChat(ctx, "a", "youtube-playlist-auto-translate")
	require.NoError(t, err)
	b, err := s.CreateChat(ctx, "b", "")
	require.NoError(t, err)

	chats, err := s.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, b.ID, chats[0].ID)

	require.NoError(t, s.InsertMessage(ctx, &Message{ChatID: a.ID, Role: RoleUser, Content: "hi"}))

	chats, err = s.ListChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, chats[0].ID, "new message moves chat to the top")
	assert.Equal(t, "youtube-playlist-auto-translate", chats[0].RecipeID)
	assert.Empty(t, chats[1].RecipeID)
}

func TestGetChat_NotFound(t *testing.T) {
	s := openTest(t)
	_, err := s.GetChat(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessages_RoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	// A frozen clock must still yield distinct, ordered timestamps.
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return frozen }

	c, err := s.CreateChat(ctx, "plan", "")
	require.NoError(t, err)

	b := idea.NewBundle("mock", "mock-1", idea.Response{
		Ideas:  []idea.Idea{{Title: "Cache ids", Description: "d"}},
		Effort: idea.EffortEstimate{Time: "2 days"},
	}, "raw")

	user := &Message{ChatID: c.ID, Role: RoleUser, Content: "question"}
	asst := &Message{ChatID: c.ID, Role: RoleAssistant, Content: "Generated 1 idea bundle(s).", Bundles: []idea.Bundle{b}}
	require.NoError(t, s.InsertMessage(ctx, user))
	require.NoError(t, s.InsertMessage(ctx, asst))
	assert.NotEmpty(t, user.ID)
	assert.True(t, asst.CreatedAt.After(user.CreatedAt))

	msgs, err := s.ChatMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, user.ID, msgs[0].ID)
	assert.Empty(t, msgs[0].Bundles)
	require.Len(t, msgs[1].Bundles, 1)
	assert.Equal(t, b.ID, msgs[1].Bundles[0].ID)
	assert.Equal(t, "Cache ids", msgs[1].Bundles[0].Ideas[0].Title)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestInsertMessage_UnknownChat(t *testing.T) {
	s := openTest(t)
	err := s.InsertMessage(context.Background(), &Message{ChatID: "nope", Role: RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetFeedback(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	c, err := s.CreateChat(ctx, "c", "")
	require.NoError(t, err)
	m := &Message{ChatID: c.ID, Role: RoleAssistant, Content: "ok"}
	require.NoError(t, s.InsertMessage(ctx, m))

	require.NoError(t, s.SetFeedback(ctx, m.ID, FeedbackHelpful))
	msgs, err := s.ChatMessages(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, FeedbackHelpful, msgs[0].Feedback)

	assert.ErrorIs(t, s.SetFeedback(ctx, "missing", FeedbackNotHelpful), ErrNotFound)
	assert.ErrorContains(t, s.SetFeedback(ctx, m.ID, "meh"), `invalid feedback "meh"`)
}

func TestRecipes_Upsert(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	r := recipe.Recipe{
		ID:                 "z-recipe",
		Name:               "Zeta",
		SystemPrompt:       "sys",
		UserPromptTemplate: "{{topic}}",
		Rubric:             map[string]float64{"novelty": 3},
		FewShotExamples:    []string{"Example: one"},
	}
	require.NoError(t, s.SaveRecipe(ctx, r))
	require.NoError(t, s.SaveRecipe(ctx, recipe.Recipe{ID: "a-recipe", Name: "Alpha", SystemPrompt: "s"}))

	r.Name = "Beta"
	require.NoError(t, s.SaveRecipe(ctx, r))

	list, err := s.ListRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"Alpha", "Beta"}, []string{list[0].Name, list[1].Name})
	assert.Nil(t, list[0].Rubric)

	got, err := s.GetRecipe(ctx, "z-recipe")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"novelty": 3}, got.Rubric)
	assert.Equal(t, []string{"Example: one"}, got.FewShotExamples)

	_, err = s.GetRecipe(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.SaveRecipe(ctx, recipe.Recipe{ID: "bad"}))
}

func TestEvalResults(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	none, err := s.LatestEvalResult(ctx, "r", "p1")
	require.NoError(t, err)
	assert.Nil(t, none)

	first := &EvalResult{RecipeID: "r", ProblemID: "p1", BundleID: "b1", Card: rank.ScoreCard{Novelty: 3, Total: 20}}
	require.NoError(t, s.SaveEvalResult(ctx, first))
	delta := rank.ScoreCard{Novelty: 1, Total: 2}
	second := &EvalResult{RecipeID: "r", ProblemID: "p1", BundleID: "b2", Card: rank.ScoreCard{Novelty: 4, Total: 22}, Delta: &delta}
	require.NoError(t, s.SaveEvalResult(ctx, second))
	require.NoError(t, s.SaveEvalResult(ctx, &EvalResult{RecipeID: "other", ProblemID: "p1", BundleID: "b3"}))

	latest, err := s.LatestEvalResult(ctx, "r", "p1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b2", latest.BundleID)
	require.NotNil(t, latest.Delta)
	assert.Equal(t, delta, *latest.Delta)

	list, err := s.ListEvalResults(ctx, "r")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b1", list[0].BundleID)
	assert.Nil(t, list[0].Delta)

	all, err := s.ListEvalResults(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
