// Package zep is a client for the Zep Cloud API implementing
// core.GraphMemoryBackend. Each identity maps to one Zep user with a single
// thread; messages are added to the thread and retrieved through the
// user's knowledge graph.
package zep

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/internal/rest"
	"github.com/hupe1980/memorybench/logging"
)

// DefaultBaseURL is the hosted Zep API.
const DefaultBaseURL = "https://api.getzep.com/api/v2"

// Options configures the client.
type Options struct {
	APIKey  string
	BaseURL string
	// UserPrefix namespaces user and thread ids, typically with a run id.
	UserPrefix string
	HTTPClient *http.Client
	// Logger records each REST call.
	Logger logging.Logger
}

// Client talks to the Zep REST API.
type Client struct {
	rest *rest.Client
	opts Options

	mu      sync.Mutex
	ensured map[string]bool
}

var _ core.GraphMemoryBackend = (*Client)(nil)

// New creates a client.
func New(optFns ...func(o *Options)) (*Client, error) {
	opts := Options{BaseURL: DefaultBaseURL}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("zep: api key is required")
	}
	header := http.Header{}
	header.Set("Authorization", "Api-Key "+opts.APIKey)
	return &Client{
		rest:    rest.NewClient(opts.BaseURL, header, opts.HTTPClient, opts.Logger),
		opts:    opts,
		ensured: make(map[string]bool),
	}, nil
}

// UserID returns the Zep user of identity.
func (c *Client) UserID(identity string) string { return c.opts.UserPrefix + identity }

// ThreadID returns the Zep thread of identity.
func (c *Client) ThreadID(identity string) string { return c.opts.UserPrefix + identity + "_thread" }

// Reset deletes the user of identity together with its graph. A user that
// does not exist is not an error.
func (c *Client) Reset(ctx context.Context, identity string) error {
	c.mu.Lock()
	delete(c.ensured, identity)
	c.mu.Unlock()

	err := c.rest.Do(ctx, "zep delete user", http.MethodDelete, "/users/"+url.PathEscape(c.UserID(identity)), nil, nil, nil)
	if rest.IsStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func (c *Client) ensure(ctx context.Context, identity string) error {
	c.mu.Lock()
	done := c.ensured[identity]
	c.mu.Unlock()
	if done {
		return nil
	}

	userID := c.UserID(identity)
	err := c.rest.Do(ctx, "zep add user", http.MethodPost, "/users", nil, map[string]any{"user_id": userID}, nil)
	if err != nil && !rest.IsStatus(err, http.StatusConflict, http.StatusBadRequest) {
		return err
	}
	err = c.rest.Do(ctx, "zep create thread", http.MethodPost, "/threads", nil, map[string]any{
		"thread_id": c.ThreadID(identity),
		"user_id":   userID,
	}, nil)
	if err != nil && !rest.IsStatus(err, http.StatusConflict, http.StatusBadRequest) {
		return err
	}

	c.mu.Lock()
	c.ensured[identity] = true
	c.mu.Unlock()
	return nil
}

type message struct {
	Role    core.Role `json:"role"`
	Content string    `json:"content"`
}

// Add ensures the user and thread exist and appends the batch to the
// thread. The segment timestamp is prefixed to every message so the graph
// can date the extracted facts.
func (c *Client) Add(ctx context.Context, identity string, messages []core.Message, metadata map[string]any) error {
	if err := c.ensure(ctx, identity); err != nil {
		return err
	}
	ts, _ := metadata["timestamp"].(string)
	out := make([]message, len(messages))
	for i, m := range messages {
		content := m.Content
		if ts != "" {
			content = ts + ": " + content
		}
		out[i] = message{Role: m.Role, Content: content}
	}
	path := "/threads/" + url.PathEscape(c.ThreadID(identity)) + "/messages"
	return c.rest.Do(ctx, "zep add messages", http.MethodPost, path, nil, map[string]any{"messages": out}, nil)
}

type edge struct {
	Fact      string `json:"fact"`
	ValidAt   string `json:"valid_at"`
	InvalidAt string `json:"invalid_at"`
}

type node struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

type searchResponse struct {
	Edges []edge `json:"edges"`
	Nodes []node `json:"nodes"`
}

func (c *Client) search(ctx context.Context, identity, query, scope string, q core.GraphQuery) (*searchResponse, error) {
	body := map[string]any{
		"user_id": c.UserID(identity),
		"query":   query,
		"scope":   scope,
	}
	if q.Limit > 0 {
		body["limit"] = q.Limit
	}
	if q.Reranker != "" {
		body["reranker"] = string(q.Reranker)
	}
	var resp searchResponse
	if err := c.rest.Do(ctx, "zep graph search "+scope, http.MethodPost, "/graph/search", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchFacts searches the edges of the identity's graph.
func (c *Client) SearchFacts(ctx context.Context, identity, query string, q core.GraphQuery) ([]core.Fact, error) {
	resp, err := c.search(ctx, identity, query, "edges", q)
	if err != nil {
		return nil, err
	}
	facts := make([]core.Fact, len(resp.Edges))
	for i, e := range resp.Edges {
		facts[i] = core.NewFact(e.Fact, e.ValidAt, e.InvalidAt)
	}
	return facts, nil
}

// SearchEntities searches the nodes of the identity's graph.
func (c *Client) SearchEntities(ctx context.Context, identity, query string, q core.GraphQuery) ([]core.Entity, error) {
	resp, err := c.search(ctx, identity, query, "nodes", q)
	if err != nil {
		return nil, err
	}
	entities := make([]core.Entity, len(resp.Nodes))
	for i, n := range resp.Nodes {
		entities[i] = core.Entity{Name: n.Name, Summary: n.Summary}
	}
	return entities, nil
}
