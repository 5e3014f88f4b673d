// Package rest is the JSON-over-HTTP helper shared by the memory backend
// clients. It maps HTTP failures onto the core error taxonomy: server
// errors, throttling and transport failures become *core.TransientRemoteError
// (retried), other client errors are marked permanent.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/logging"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsStatus reports whether err carries an HTTP response with one of codes.
func IsStatus(err error, codes ...int) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.StatusCode == c {
			return true
		}
	}
	return false
}

// Client sends JSON requests relative to BaseURL.
type Client struct {
	baseURL string
	header  http.Header
	client  *http.Client
	logger  logging.Logger
}

// NewClient creates a client. A nil httpClient uses one with DefaultTimeout;
// a nil logger discards the per-call records.
func NewClient(baseURL string, header http.Header, httpClient *http.Client, logger logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  header,
		client:  httpClient,
		logger:  logging.OrNoOp(logger),
	}
}

// Do sends in (when non-nil) as the JSON body and decodes the response into
// out (when non-nil). op names the call in errors and logs.
func (c *Client) Do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	start := time.Now()
	err := c.do(ctx, op, method, path, query, in, out)
	logging.LogRemoteCall(c.logger, op, method+" "+path, time.Since(start), err)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return core.Permanent(fmt.Errorf("%s: marshal request: %w", op, err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return core.Permanent(fmt.Errorf("%s: create request: %w", op, err))
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &core.TransientRemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		if retryable(resp.StatusCode) {
			return &core.TransientRemoteError{Op: op, StatusCode: resp.StatusCode, Err: se}
		}
		return core.Permanent(fmt.Errorf("%s: %w", op, se))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &core.TransientRemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func retryable(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}
