package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
	"github.com/Jon-Arve-Ovesen/agent-zero/model"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ model.Model = (*Model)(nil)

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := anthropic.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return NewModelFromClient(&client)
}

func testRequest() model.Request {
	return model.Request{
		AgentName:    "ClaudeAgent",
		Model:        "claude-3-5-haiku-latest",
		Instructions: "You are ClaudeAgent.",
		Context:      core.ContextData{"user": core.StringValue("test")},
		Contents:     []core.Content{core.NewTextContent(core.RoleUser, "Who am I?")},
	}
}

func TestModel_GenerateNonStreaming(t *testing.T) {
	var body map[string]any
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "You are test."}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 7, "output_tokens": 3}
		}`))
	})

	resp, err := model.Complete(context.Background(), m, testRequest())
	require.NoError(t, err)
	assert.Equal(t, "You are test.", resp.Content.Text())
	assert.Equal(t, "end_turn", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 10, resp.Usage.TotalTokens)

	assert.Equal(t, "claude-3-5-haiku-latest", body["model"])
	system, ok := body["system"].([]any)
	require.True(t, ok, "system prompt expected, got %#v", body["system"])
	require.Len(t, system, 1)
	assert.Contains(t, system[0].(map[string]any)["text"], "user=test")
}

func TestModel_GenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"overloaded", 529, core.ErrBackendUnavailable},
		{"unavailable", http.StatusServiceUnavailable, core.ErrBackendUnavailable},
		{"fault", http.StatusBadRequest, core.ErrBackendError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "test", "message": "nope"}}`))
			})
			_, err := model.Complete(context.Background(), m, testRequest())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages([]core.Content{
		core.NewTextContent(core.RoleSystem, "sys"),
		core.NewTextContent(core.RoleUser, "hi"),
		core.NewTextContent(core.RoleAssistant, "hello"),
		core.NewTextContent(core.RoleUser, ""),
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
}

func TestSystemPrompt(t *testing.T) {
	req := testRequest()
	req.Contents = append([]core.Content{core.NewTextContent(core.RoleSystem, "extra")}, req.Contents...)
	assert.Equal(t, "You are ClaudeAgent.\n\nContext:\n- user=test\n\nextra", systemPrompt(req))
}

func TestModel_Info(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "k"; o.Model = "claude-x" })
	assert.Equal(t, model.Info{Name: "claude-x", Provider: "anthropic"}, m.Info())
}

func TestNewModel_SingleHTTPCallPerAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "overloaded_error", "message": "overloaded"}}`))
	}))
	t.Cleanup(srv.Close)

	m := NewModel(func(o *Options) { o.BaseURL = srv.URL; o.APIKey = "test-key" })
	_, err := model.Complete(context.Background(), m, testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
	assert.Equal(t, int32(1), hits.Load())
}
