package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memorybench/model"
)

func newServer(t *testing.T, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "Paris"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 2}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_InstructionsOnly(t *testing.T) {
	var body map[string]any
	srv := newServer(t, &body)
	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	resp, err := m.Generate(context.Background(), model.Request{Instructions: "answer prompt"})
	require.NoError(t, err)
	assert.Equal(t, "Paris", resp.Text)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, 14, resp.Usage.TotalTokens)

	assert.Equal(t, float64(0), body["temperature"])
	assert.Nil(t, body["system"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestGenerate_SystemAndPrompt(t *testing.T) {
	var body map[string]any
	srv := newServer(t, &body)
	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	_, err := m.Generate(context.Background(), model.Request{Instructions: "be brief", Prompt: "capital of France?"})
	require.NoError(t, err)
	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "be brief", system[0].(map[string]any)["text"])
}

func TestGenerate_EmptyRequest(t *testing.T) {
	_, err := NewModel(func(o *Options) { o.APIKey = "test" }).Generate(context.Background(), model.Request{})
	assert.ErrorIs(t, err, model.ErrEmptyRequest)
}
