package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/recipe"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const memoryPath = ":memory:"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SQLStore implements Store with SQLite. Writes are serialized by a mutex
// and the pool holds a single connection.
type SQLStore struct {
	db   *sql.DB
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

var _ Store = (*SQLStore)(nil)

// Open opens or creates a SQLite DB at path and creates the schema.
// Creates the parent directory (e.g. .ideaengine) if it does not exist.
func Open(path string) (*SQLStore, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens an in-memory SQLite DB for testing.
func OpenMemory() (*SQLStore, error) {
	return Open(memoryPath)
}

func (s *SQLStore) migrate() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// stamp returns a timestamp that sorts after every earlier stamp from this
// store, even when the clock has not advanced. Callers hold s.mu.
func (s *SQLStore) stamp() time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *SQLStore) CreateChat(ctx context.Context, title, recipeID string) (*Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	c := &Chat{ID: uuid.NewString(), Title: title, RecipeID: recipeID, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats(id, title, template_id, created_at, updated_at) VALUES(?, ?, ?, ?, ?)`,
		c.ID, c.Title, nullIfEmpty(recipeID), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}
	return c, nil
}

func (s *SQLStore) GetChat(ctx context.Context, id string) (*Chat, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, template_id, created_at, updated_at FROM chats WHERE id = ?`, id)
	c, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return c, nil
}

func (s *SQLStore) ListChats(ctx context.Context) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, template_id, created_at, updated_at FROM chats ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	list := []Chat{}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		list = append(list, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return list, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(sc scanner) (*Chat, error) {
	var c Chat
	var recipeID sql.NullString
	var created, updated string
	if err := sc.Scan(&c.ID, &c.Title, &recipeID, &created, &updated); err != nil {
		return nil, err
	}
	c.RecipeID = nullStr(recipeID)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

// InsertMessage stores m, assigning ID and CreatedAt when empty, and
// touches the chat's updated_at in the same transaction.
func (s *SQLStore) InsertMessage(ctx context.Context, m *Message) error {
	if m == nil {
		return errors.New("message is nil")
	}
	var bundles any
	if len(m.Bundles) > 0 {
		data, err := json.Marshal(m.Bundles)
		if err != nil {
			return fmt.Errorf("encode bundles: %w", err)
		}
		bundles = string(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.stamp()
	}
	now := formatTime(m.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, now, m.ChatID)
	if err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chat %s: %w", m.ChatID, ErrNotFound)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages(id, chat_id, role, content, idea_bundles_json, feedback, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, string(m.Role), m.Content, bundles, nullIfEmpty(string(m.Feedback)), now,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message: %w", err)
	}
	return nil
}

func (s *SQLStore) ChatMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, role, content, idea_bundles_json, feedback, created_at
		 FROM messages WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	list := []Message{}
	for rows.Next() {
		var m Message
		var role, created string
		var bundles, feedback sql.NullString
		if err := rows.Scan(&m.ID, &m.ChatID, &role, &m.Content, &bundles, &feedback, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = Role(role)
		m.Feedback = Feedback(nullStr(feedback))
		m.CreatedAt = parseTime(created)
		if bundles.Valid && bundles.String != "" {
			if err := json.Unmarshal([]byte(bundles.String), &m.Bundles); err != nil {
				return nil, fmt.Errorf("decode bundles of message %s: %w", m.ID, err)
			}
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return list, nil
}

func (s *SQLStore) SetFeedback(ctx context.Context, messageID string, f Feedback) error {
	if !f.IsValid() {
		return fmt.Errorf("invalid feedback %q", f)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE messages SET feedback = ? WHERE id = ?`, string(f), messageID)
	if err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return nil
}

// SaveRecipe inserts or replaces r by id.
func (s *SQLStore) SaveRecipe(ctx context.Context, r recipe.Recipe) error {
	if err := r.Validate(); err != nil {
		return err
	}
	rubric := r.Rubric
	if rubric == nil {
		rubric = map[string]float64{}
	}
	rubricJSON, err := json.Marshal(rubric)
	if err != nil {
		return fmt.Errorf("encode rubric: %w", err)
	}
	var examples any
	if len(r.FewShotExamples) > 0 {
		data, err := json.Marshal(r.FewShotExamples)
		if err != nil {
			return fmt.Errorf("encode examples: %w", err)
		}
		examples = string(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := r.CreatedAt
	if created.IsZero() {
		created = s.stamp()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO recipes(id, name, system_prompt, user_prompt_template, rubric_json, few_shot_examples_json, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.SystemPrompt, r.UserPromptTemplate, string(rubricJSON), examples, formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("save recipe: %w", err)
	}
	return nil
}

const recipeColumns = `id, name, system_prompt, user_prompt_template, rubric_json, few_shot_examples_json, created_at`

func (s *SQLStore) GetRecipe(ctx context.Context, id string) (*recipe.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return r, nil
}

func (s *SQLStore) ListRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	list := []recipe.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		list = append(list, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return list, nil
}

func scanRecipe(sc scanner) (*recipe.Recipe, error) {
	var r recipe.Recipe
	var rubricJSON, created string
	var examples sql.NullString
	if err := sc.Scan(&r.ID, &r.Name, &r.SystemPrompt, &r.UserPromptTemplate, &rubricJSON, &examples, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rubricJSON), &r.Rubric); err != nil {
		return nil, fmt.Errorf("decode rubric of recipe %s: %w", r.ID, err)
	}
	if len(r.Rubric) == 0 {
		r.Rubric = nil
	}
	if examples.Valid && examples.String != "" {
		if err := json.Unmarshal([]byte(examples.String), &r.FewShotExamples); err != nil {
			return nil, fmt.Errorf("decode examples of recipe %s: %w", r.ID, err)
		}
	}
	r.CreatedAt = parseTime(created)
	r.Source = "store"
	return &r, nil
}

func (s *SQLStore) SaveEvalResult(ctx context.Context, r *EvalResult) error {
	if r == nil {
		return errors.New("eval result is nil")
	}
	card, err := json.Marshal(r.Card)
	if err != nil {
		return fmt.Errorf("encode score card: %w", err)
	}
	var delta any
	if r.Delta != nil {
		data, err := json.Marshal(r.Delta)
		if err != nil {
			return fmt.Errorf("encode delta: %w", err)
		}
		delta = string(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.stamp()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO eval_results(id, recipe_id, problem_id, bundle_id, score_card_json, delta_json, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RecipeID, r.ProblemID, r.BundleID, string(card), delta, formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert eval result: %w", err)
	}
	return nil
}

const evalColumns = `id, recipe_id, problem_id, bundle_id, score_card_json, delta_json, created_at`

// LatestEvalResult returns the most recent result for the pair, or nil
// when there is none.
func (s *SQLStore) LatestEvalResult(ctx context.Context, recipeID, problemID string) (*EvalResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+evalColumns+` FROM eval_results
		 WHERE recipe_id = ? AND problem_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, recipeID, problemID)
	r, err := scanEval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest eval result: %w", err)
	}
	return r, nil
}

// ListEvalResults returns results oldest first. An empty recipeID lists
// every recipe.
func (s *SQLStore) ListEvalResults(ctx context.Context, recipeID string) ([]EvalResult, error) {
	q := `SELECT ` + evalColumns + ` FROM eval_results`
	var args []any
	if recipeID != "" {
		q += ` WHERE recipe_id = ?`
		args = append(args, recipeID)
	}
	q += ` ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list eval results: %w", err)
	}
	defer rows.Close()

	list := []EvalResult{}
	for rows.Next() {
		r, err := scanEval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eval result: %w", err)
		}
		list = append(list, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list eval results: %w", err)
	}
	return list, nil
}

func scanEval(sc scanner) (*EvalResult, error) {
	var r EvalResult
	var card, created string
	var delta sql.NullString
	if err := sc.Scan(&r.ID, &r.RecipeID, &r.ProblemID, &r.BundleID, &card, &delta, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(card), &r.Card); err != nil {
		return nil, fmt.Errorf("decode score card: %w", err)
	}
	if delta.Valid && delta.String != "" {
		var d rank.ScoreCard
		if err := json.Unmarshal([]byte(delta.String), &d); err != nil {
			return nil, fmt.Errorf("decode delta: %w", err)
		}
		r.Delta = &d
	}
	r.CreatedAt = parseTime(created)
	return &r, nil
}
