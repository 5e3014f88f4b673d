package zep

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memorybench/core"
)

type call struct {
	method string
	path   string
	body   map[string]any
}

type fakeZep struct {
	mu     sync.Mutex
	calls  []call
	status map[string]int
	reply  map[string]string
}

func (f *fakeZep) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{method: r.Method, path: r.URL.Path}
	if r.ContentLength > 0 {
		_ = json.NewDecoder(r.Body).Decode(&c.body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	key := r.Method + " " + r.URL.Path
	if c.body != nil {
		if scope, ok := c.body["scope"].(string); ok {
			key += " " + scope
		}
	}
	status, reply := f.status[key], f.reply[key]
	f.mu.Unlock()
	if r.Header.Get("Authorization") != "Api-Key secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
	}
	if reply == "" {
		reply = "{}"
	}
	_, _ = w.Write([]byte(reply))
}

func (f *fakeZep) callsTo(method, path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, f *fakeZep) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := New(func(o *Options) {
		o.APIKey = "secret"
		o.BaseURL = srv.URL
		o.UserPrefix = "run1_"
	})
	require.NoError(t, err)
	return c
}

func TestReset_ToleratesMissingUser(t *testing.T) {
	f := &fakeZep{status: map[string]int{"DELETE /users/run1_Ann_0": http.StatusNotFound}}
	c := newTestClient(t, f)
	require.NoError(t, c.Reset(context.Background(), "Ann_0"))
	assert.Len(t, f.callsTo(http.MethodDelete, "/users/run1_Ann_0"), 1)
}

func TestReset_PropagatesOtherErrors(t *testing.T) {
	f := &fakeZep{status: map[string]int{"DELETE /users/run1_Ann_0": http.StatusInternalServerError}}
	err := newTestClient(t, f).Reset(context.Background(), "Ann_0")
	var tre *core.TransientRemoteError
	assert.ErrorAs(t, err, &tre)
}

func TestAdd_EnsuresOnceAndPrefixesTimestamp(t *testing.T) {
	f := &fakeZep{status: map[string]int{"POST /users": http.StatusConflict}}
	c := newTestClient(t, f)
	ctx := context.Background()
	msgs := []core.Message{{Role: core.RoleSelf, Content: "Ann: hi"}}

	require.NoError(t, c.Add(ctx, "Ann_0", msgs, map[string]any{"timestamp": "1:56 pm on 8 May, 2023"}))
	require.NoError(t, c.Add(ctx, "Ann_0", msgs, map[string]any{"timestamp": "T2"}))

	assert.Len(t, f.callsTo(http.MethodPost, "/users"), 1)
	threads := f.callsTo(http.MethodPost, "/threads")
	require.Len(t, threads, 1)
	assert.Equal(t, "run1_Ann_0_thread", threads[0].body["thread_id"])
	assert.Equal(t, "run1_Ann_0", threads[0].body["user_id"])

	adds := f.callsTo(http.MethodPost, "/threads/run1_Ann_0_thread/messages")
	require.Len(t, adds, 2)
	first := adds[0].body["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "1:56 pm on 8 May, 2023: Ann: hi", first["content"])
}

func TestAdd_ResetForgetsEnsuredUser(t *testing.T) {
	f := &fakeZep{}
	c := newTestClient(t, f)
	ctx := context.Background()
	require.NoError(t, c.Add(ctx, "Ann_0", nil, nil))
	require.NoError(t, c.Reset(ctx, "Ann_0"))
	require.NoError(t, c.Add(ctx, "Ann_0", nil, nil))
	assert.Len(t, f.callsTo(http.MethodPost, "/users"), 2)
}

func TestSearch(t *testing.T) {
	f := &fakeZep{reply: map[string]string{
		"POST /graph/search edges": `{"edges": [
			{"fact": "Ann adopted a cat", "valid_at": "2023-05-07T00:00:00Z"},
			{"fact": "Bob lived in Rome", "valid_at": "2020-01-01T00:00:00Z", "invalid_at": "2022-01-01T00:00:00Z"}
		]}`,
		"POST /graph/search nodes": `{"nodes": [{"name": "Ann", "summary": "A painter"}]}`,
	}}
	c := newTestClient(t, f)
	ctx := context.Background()

	facts, err := c.SearchFacts(ctx, "Ann_0", "pets", core.GraphQuery{Limit: 20, Reranker: core.RerankerCrossEncoder})
	require.NoError(t, err)
	assert.Equal(t, []core.Fact{
		{Statement: "Ann adopted a cat", ValidFrom: "2023-05-07T00:00:00Z", ValidTo: "present"},
		{Statement: "Bob lived in Rome", ValidFrom: "2020-01-01T00:00:00Z", ValidTo: "2022-01-01T00:00:00Z"},
	}, facts)

	entities, err := c.SearchEntities(ctx, "Ann_0", "pets", core.GraphQuery{Limit: 20, Reranker: core.RerankerRRF})
	require.NoError(t, err)
	assert.Equal(t, []core.Entity{{Name: "Ann", Summary: "A painter"}}, entities)

	searches := f.callsTo(http.MethodPost, "/graph/search")
	require.Len(t, searches, 2)
	assert.Equal(t, "cross_encoder", searches[0].body["reranker"])
	assert.Equal(t, "edges", searches[0].body["scope"])
	assert.Equal(t, float64(20), searches[0].body["limit"])
	assert.Equal(t, "run1_Ann_0", searches[0].body["user_id"])
	assert.Equal(t, "rrf", searches[1].body["reranker"])
	assert.Equal(t, "nodes", searches[1].body["scope"])
}
