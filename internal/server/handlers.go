package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dusk-indust/ideaengine/internal/engine"
	"github.com/dusk-indust/ideaengine/internal/export"
	"github.com/dusk-indust/ideaengine/internal/orchestrator"
	"github.com/dusk-indust/ideaengine/internal/rank"
	"github.com/dusk-indust/ideaengine/internal/recipe"
	"github.com/dusk-indust/ideaengine/internal/store"
)

const maxBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine and store errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var missing *recipe.MissingVariablesError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNoProviders):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrEmptyPrompt), errors.As(err, &missing), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ProviderStatus())
}

type createChatRequest struct {
	Title      string `json:"title"`
	RecipeID   string `json:"recipeId"`
	TemplateID string `json:"templateId"`
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	recipeID := req.RecipeID
	if recipeID == "" {
		recipeID = req.TemplateID
	}
	chat, err := s.engine.CreateChat(r.Context(), req.Title, recipeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.engine.ListChats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.engine.ChatMessages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in engine.SendMessageInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.ChatID = chi.URLParam(r, "id")

	out, err := s.engine.SendMessage(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type generateRequest struct {
	Prompt       string            `json:"prompt"`
	SystemPrompt string            `json:"systemPrompt"`
	Providers    []string          `json:"providers"`
	Rubric       *rank.Rubric      `json:"rubric"`
	RecipeID     string            `json:"recipeId"`
	Vars         map[string]string `json:"vars"`
}

func (g generateRequest) input() engine.GenerateInput {
	return engine.GenerateInput{
		Prompt:       g.Prompt,
		SystemPrompt: g.SystemPrompt,
		Providers:    g.Providers,
		Rubric:       g.Rubric,
		RecipeID:     g.RecipeID,
		Vars:         g.Vars,
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.engine.Generate(r.Context(), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGenerateStream runs a generation and streams provider progress as
// "progress" events, ending with one "result" or "error" event. Failures
// before dispatch are answered as plain JSON errors.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reporter := orchestrator.NewProgressReporter()
	in := req.input()
	in.Progress = reporter.Emit

	type outcome struct {
		res orchestrator.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.engine.Generate(r.Context(), in)
		reporter.Close()
		done <- outcome{res, err}
	}()

	sse := newSSEWriter(w)
	for ev := range reporter.Subscribe() {
		if err := sse.writeEvent("progress", ev); err != nil {
			s.logger.Debug("stream closed", slog.String("err", err.Error()))
		}
	}

	out := <-done
	switch {
	case out.err != nil && !sse.started:
		writeError(w, out.err)
	case out.err != nil:
		_ = sse.writeEvent("error", map[string]string{"error": out.err.Error()})
	default:
		_ = sse.writeEvent("result", out.res)
	}
}

type feedbackRequest struct {
	Feedback store.Feedback `json:"feedback"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !req.Feedback.IsValid() {
		writeError(w, fmt.Errorf("%w: invalid feedback %q", errBadRequest, req.Feedback))
		return
	}
	if err := s.engine.SetFeedback(r.Context(), chi.URLParam(r, "id"), req.Feedback); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.engine.ListRecipes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) handleSaveRecipe(w http.ResponseWriter, r *http.Request) {
	var rec recipe.Recipe
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, err)
		return
	}
	rec.ID = chi.URLParam(r, "id")
	if err := rec.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.engine.SaveRecipe(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleExportChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	chat, err := s.engine.Store().GetChat(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	msgs, err := s.engine.ChatMessages(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	exp, err := export.FromChat(*chat, msgs, s.engine.DefaultRubric())
	if err != nil {
		writeError(w, fmt.Errorf("chat %s: %w", id, store.ErrNotFound))
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		_ = export.WriteJSON(w, exp)
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, export.Markdown(exp))
	case "html":
		page, err := export.HTML(exp)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page)
	default:
		writeError(w, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
	}
}
