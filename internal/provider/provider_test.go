package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{
  "ideas": [{"title": "Cache playlist ids", "description": "Store ids to save quota"}],
  "step_plan": [{"order": 1, "action": "Call playlistItems.list"}],
  "risks": [{"description": "Quota", "severity": "medium"}],
  "dependencies": ["YouTube Data API"],
  "effort": {"time": "3 days"},
  "next_actions": [{"action": "Create a key", "priority": "short"}]
}`

func fenced(s string) string { return "```json\n" + s + "\n```" }

// anthropicBody is the subset of a Messages API request the tests inspect.
type anthropicBody struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

// anthropicReply encodes a Messages API response carrying text.
func anthropicReply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"model":       DefaultAnthropicModel,
		"content":     []map[string]string{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]int{"input_tokens": 1, "output_tokens": 1},
	})
}

func TestAnthropic_Complete(t *testing.T) {
	var got anthropicBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		anthropicReply(w, fenced(payload))
	}))
	defer srv.Close()

	p := NewAnthropic(Settings{APIKey: "sk-ant", BaseURL: srv.URL})
	b, err := p.Complete(context.Background(), "be creative", "translate a playlist")
	require.NoError(t, err)

	assert.Equal(t, AnthropicID, b.Provider)
	assert.Equal(t, DefaultAnthropicModel, b.Model)
	require.Len(t, b.Ideas, 1)
	assert.Equal(t, "Cache playlist ids", b.Ideas[0].Title)
	assert.Contains(t, b.RawResponse, "```json")

	assert.Equal(t, DefaultAnthropicModel, got.Model)
	assert.Equal(t, MaxOutputTokens, got.MaxTokens)
	require.Len(t, got.System, 1)
	assert.True(t, strings.HasPrefix(got.System[0].Text, "be creative"))
	assert.Contains(t, got.System[0].Text, "Respond with valid JSON")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Equal(t, "translate a playlist", got.Messages[0].Content[0].Text)
}

func TestGemini_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				ResponseMIMEType string `json:"responseMimeType"`
				MaxOutputTokens  int    `json:"maxOutputTokens"`
			} `json:"generationConfig"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMIMEType)
		assert.Equal(t, MaxOutputTokens, req.GenerationConfig.MaxOutputTokens)
		if assert.Len(t, req.Contents, 1) && assert.NotEmpty(t, req.Contents[0].Parts) {
			assert.Contains(t, req.Contents[0].Parts[0].Text, "\n\n---\n\nthe user prompt")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"role": "model", "parts": []map[string]string{{"text": payload}}},
			}},
		})
	}))
	defer srv.Close()

	p := NewGemini(Settings{APIKey: "g-key", Model: "gemini-2.0-flash", BaseURL: srv.URL})
	assert.Equal(t, "gemini-2.0-flash", p.Model())

	b, err := p.Complete(context.Background(), "sys", "the user prompt")
	require.NoError(t, err)
	assert.Equal(t, GeminiID, b.Provider)
	assert.Equal(t, "3 days", b.Effort.Time)
}

func TestGemini_KeyNotInErrors(t *testing.T) {
	const key = "SECRET-KEY-123"

	// Nothing listens on port 1, so the request fails in the transport.
	p := NewGemini(Settings{APIKey: key, BaseURL: "http://127.0.0.1:1"})
	_, err := p.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Equal(t, KindAPI, Kind(err))
	assert.NotContains(t, err.Error(), key)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotContains(t, r.URL.String(), key)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "denied", "status": "PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	p = NewGemini(Settings{APIKey: key, BaseURL: srv.URL})
	_, err = p.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestOpenAI_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-oa", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"json_object"`)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   DefaultOpenAIModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": payload},
			}},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(Settings{APIKey: "sk-oa", BaseURL: srv.URL + "/v1/"})
	b, err := p.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, OpenAIID, b.Provider)
	assert.Equal(t, DefaultOpenAIModel, b.Model)
	require.Len(t, b.StepPlan, 1)
}

func TestOpenAI_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad model", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAI(Settings{APIKey: "sk-oa", BaseURL: srv.URL + "/v1/"})
	_, err := p.Complete(context.Background(), "sys", "user")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, KindAPI, Kind(err))
}

func TestAdapters_MissingCredential(t *testing.T) {
	for _, p := range []Provider{
		NewOpenAI(Settings{}),
		NewAnthropic(Settings{}),
		NewGemini(Settings{}),
	} {
		t.Run(p.ID(), func(t *testing.T) {
			_, err := p.Complete(context.Background(), "s", "u")
			assert.ErrorIs(t, err, ErrMissingCredential)
			assert.Equal(t, KindCredential, Kind(err))
			assert.False(t, Retryable(err))
		})
	}
}

func TestAnthropic_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer srv.Close()

	p := NewAnthropic(Settings{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), "s", "u")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "slow down")
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.True(t, Retryable(err))
}

func TestStatusError_TruncatesBody(t *testing.T) {
	err := statusError("x", http.StatusBadGateway, strings.Repeat("x", 5000), errors.New("bad gateway"))
	assert.Len(t, err.Body, maxErrorBody)
	assert.Equal(t, http.StatusBadGateway, err.StatusCode)
	assert.EqualError(t, errors.Unwrap(err), "bad gateway")
}

func TestAnthropic_SchemaViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anthropicReply(w, `{"ideas": []}`)
	}))
	defer srv.Close()

	p := NewAnthropic(Settings{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), "s", "u")
	assert.Equal(t, KindParse, Kind(err))
	assert.Contains(t, err.Error(), "step_plan")
}

func TestGemini_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	p := NewGemini(Settings{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), "s", "u")
	assert.Equal(t, KindParse, Kind(err))
	assert.Contains(t, err.Error(), "missing content")
}

func TestAnthropic_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := NewAnthropic(Settings{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Complete(ctx, "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, Kind(err))
}

func TestMock_Complete(t *testing.T) {
	p := NewMock(Settings{})
	b, err := p.Complete(context.Background(), "", "  plan a   \"quoted\" trip  ")
	require.NoError(t, err)
	assert.Equal(t, MockID, b.Provider)
	assert.Equal(t, `Start small: plan a "quoted" trip`, b.Ideas[0].Title)
	assert.Len(t, b.StepPlan, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Complete(ctx, "", "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrorKind(""), Kind(nil))
	assert.Equal(t, KindTimeout, Kind(ErrTimeout))
	assert.Equal(t, KindCanceled, Kind(context.Canceled))
	assert.Equal(t, KindParse, Kind(&ParseError{Err: errors.New("x")}))
	assert.Equal(t, KindAPI, Kind(&APIError{Err: errors.New("dial")}))
	assert.Equal(t, KindUnknown, Kind(errors.New("other")))
}
