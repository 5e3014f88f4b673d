package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/model"
)

func newServer(t *testing.T, status int, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "7 May 2023"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_SystemMessageAtZeroTemperature(t *testing.T) {
	var body map[string]any
	srv := newServer(t, http.StatusOK, &body)
	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	resp, err := m.Generate(context.Background(), model.Request{Instructions: "answer prompt", Temperature: 0})
	require.NoError(t, err)
	assert.Equal(t, "7 May 2023", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 14, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, float64(0), body["temperature"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "answer prompt", msgs[0].(map[string]any)["content"])
}

func TestGenerate_ClientErrorIsPermanent(t *testing.T) {
	srv := newServer(t, http.StatusBadRequest, nil)
	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
	_, err := m.Generate(context.Background(), model.Request{Instructions: "q"})
	require.Error(t, err)
	assert.True(t, core.IsPermanent(err))
}

func TestGenerate_EmptyRequest(t *testing.T) {
	_, err := NewModel(func(o *Options) { o.APIKey = "test" }).Generate(context.Background(), model.Request{})
	assert.ErrorIs(t, err, model.ErrEmptyRequest)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test"; o.Model = "gpt-4.1" })
	assert.Equal(t, model.Info{Name: "gpt-4.1", Provider: "openai"}, m.Info())
}
