package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/carryon/internal/errors"
)

type capturedRequest struct {
	Path string
	Body map[string]any
}

func newJSONServer(t *testing.T, status int, response any, captured *[]capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		*captured = append(*captured, capturedRequest{Path: r.URL.Path, Body: body})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Summarize(t *testing.T) {
	var reqs []capturedRequest
	srv := newJSONServer(t, http.StatusOK, map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": "  Current task: ship it.  "},
		}},
	}, &reqs)

	s := NewOpenAI(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
		o.UtilityModel = "gpt-4.1-nano"
	})

	out, err := s.Summarize(context.Background(), "extract state", "conversation", true)
	require.NoError(t, err)
	require.Equal(t, "Current task: ship it.", out)

	require.Len(t, reqs, 1)
	require.Equal(t, "/chat/completions", reqs[0].Path)
	require.Equal(t, "gpt-4.1-nano", reqs[0].Body["model"])

	msgs := reqs[0].Body["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "system", msgs[0].(map[string]any)["role"])
	require.Equal(t, "extract state", msgs[0].(map[string]any)["content"])
	require.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAI_NoChoices(t *testing.T) {
	var reqs []capturedRequest
	srv := newJSONServer(t, http.StatusOK, map[string]any{
		"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []any{},
	}, &reqs)

	s := NewOpenAI(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
	_, err := s.Summarize(context.Background(), "s", "m", false)
	require.True(t, errors.Is(err, errors.ErrSummarizerFailed))
}

func TestOpenAI_APIError(t *testing.T) {
	var reqs []capturedRequest
	srv := newJSONServer(t, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"message": "bad model", "type": "invalid_request_error"},
	}, &reqs)

	s := NewOpenAI(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
	_, err := s.Summarize(context.Background(), "s", "m", false)
	require.True(t, errors.Is(err, errors.ErrSummarizerFailed))
}

func TestAnthropic_Summarize(t *testing.T) {
	var reqs []capturedRequest
	srv := newJSONServer(t, http.StatusOK, map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"model":       DefaultAnthropicModel,
		"stop_reason": "end_turn",
		"content": []any{
			map[string]any{"type": "text", "text": "Next steps: "},
			map[string]any{"type": "text", "text": "write tests."},
		},
		"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
	}, &reqs)

	s := NewAnthropic(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	out, err := s.Summarize(context.Background(), "extract state", "conversation", false)
	require.NoError(t, err)
	require.Equal(t, "Next steps: write tests.", out)

	require.Len(t, reqs, 1)
	require.Equal(t, "/v1/messages", reqs[0].Path)
	require.Equal(t, DefaultAnthropicModel, reqs[0].Body["model"])
	system := reqs[0].Body["system"].([]any)
	require.Equal(t, "extract state", system[0].(map[string]any)["text"])
}
