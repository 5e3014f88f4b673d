// Package mem0 is a client for the Mem0 platform API implementing
// core.RankedMemoryBackend. In graph mode searches also return the
// relations Mem0 extracted between entities.
package mem0

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/internal/rest"
	"github.com/hupe1980/memorybench/logging"
)

// DefaultBaseURL is the hosted Mem0 API.
const DefaultBaseURL = "https://api.mem0.ai"

// Options configures the client.
type Options struct {
	APIKey         string
	OrganizationID string
	ProjectID      string
	BaseURL        string
	// EnableGraph stores memories with relation extraction.
	EnableGraph bool
	HTTPClient  *http.Client
	// Logger records each REST call.
	Logger logging.Logger
}

// Client talks to the Mem0 REST API.
type Client struct {
	rest *rest.Client
	opts Options
}

var _ core.RankedMemoryBackend = (*Client)(nil)

// New creates a client.
func New(optFns ...func(o *Options)) (*Client, error) {
	opts := Options{BaseURL: DefaultBaseURL}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("mem0: api key is required")
	}
	header := http.Header{}
	header.Set("Authorization", "Token "+opts.APIKey)
	return &Client{rest: rest.NewClient(opts.BaseURL, header, opts.HTTPClient, opts.Logger), opts: opts}, nil
}

func (c *Client) scope(v url.Values) url.Values {
	if c.opts.OrganizationID != "" {
		v.Set("org_id", c.opts.OrganizationID)
	}
	if c.opts.ProjectID != "" {
		v.Set("project_id", c.opts.ProjectID)
	}
	return v
}

func (c *Client) scopeBody(body map[string]any) map[string]any {
	if c.opts.OrganizationID != "" {
		body["org_id"] = c.opts.OrganizationID
	}
	if c.opts.ProjectID != "" {
		body["project_id"] = c.opts.ProjectID
	}
	return body
}

// Reset deletes every memory of identity.
func (c *Client) Reset(ctx context.Context, identity string) error {
	q := c.scope(url.Values{"user_id": {identity}})
	return c.rest.Do(ctx, "mem0 delete_all", http.MethodDelete, "/v1/memories/", q, nil, nil)
}

// Add submits one batch of messages.
func (c *Client) Add(ctx context.Context, identity string, messages []core.Message, metadata map[string]any) error {
	body := c.scopeBody(map[string]any{
		"messages":     messages,
		"user_id":      identity,
		"version":      "v2",
		"metadata":     metadata,
		"enable_graph": c.opts.EnableGraph,
	})
	return c.rest.Do(ctx, "mem0 add", http.MethodPost, "/v1/memories/", nil, body, nil)
}

type memory struct {
	ID       string         `json:"id"`
	Memory   string         `json:"memory"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

type searchResponse struct {
	Results   []memory        `json:"results"`
	Relations []core.Relation `json:"relations"`
}

// UnmarshalJSON accepts both the bare list and the results envelope.
func (r *searchResponse) UnmarshalJSON(data []byte) error {
	var list []memory
	if err := json.Unmarshal(data, &list); err == nil {
		r.Results = list
		return nil
	}
	type plain searchResponse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = searchResponse(p)
	return nil
}

// SearchMemories implements core.RankedMemoryBackend. The search is always
// scoped to identity, whatever additional filters are configured.
func (c *Client) SearchMemories(ctx context.Context, identity, query string, opts core.SearchOptions) (*core.RankedResult, error) {
	filters := make(map[string]any, len(opts.Filters)+1)
	for k, v := range opts.Filters {
		filters[k] = v
	}
	filters["user_id"] = identity

	body := c.scopeBody(map[string]any{
		"query":   query,
		"filters": filters,
	})
	if opts.Limit > 0 {
		body["top_k"] = opts.Limit
	}
	if opts.Graph {
		body["enable_graph"] = true
		body["output_format"] = "v1.1"
	}

	var resp searchResponse
	if err := c.rest.Do(ctx, "mem0 search", http.MethodPost, "/v2/memories/search/", nil, body, &resp); err != nil {
		return nil, err
	}

	out := &core.RankedResult{Memories: make([]core.MemoryRecord, 0, len(resp.Results))}
	for _, m := range resp.Results {
		ts, _ := m.Metadata["timestamp"].(string)
		out.Memories = append(out.Memories, core.NewMemoryRecord(m.Memory, ts, m.Score))
	}
	if opts.Graph {
		out.Relations = resp.Relations
		if out.Relations == nil {
			out.Relations = []core.Relation{}
		}
	}
	return out, nil
}

// UpdateProject sets the custom instructions that steer memory extraction
// for the configured project.
func (c *Client) UpdateProject(ctx context.Context, instructions string) error {
	if c.opts.OrganizationID == "" || c.opts.ProjectID == "" {
		return core.Permanent(fmt.Errorf("mem0: organization and project id are required to update a project"))
	}
	path := fmt.Sprintf("/api/v1/orgs/organizations/%s/projects/%s/", url.PathEscape(c.opts.OrganizationID), url.PathEscape(c.opts.ProjectID))
	return c.rest.Do(ctx, "mem0 update_project", http.MethodPatch, path, nil, map[string]any{"custom_instructions": instructions}, nil)
}
