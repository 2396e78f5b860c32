package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LaravelPlus/commander/pkg/types"
)

// TestClient provides HTTP client utilities for testing
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTestClient creates a new test HTTP client
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// RequestOption configures HTTP requests
type RequestOption func(*http.Request)

// WithHeader adds a header to the request
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithUser sets the header the server reads the acting user from.
func WithUser(user string) RequestOption {
	return WithHeader("X-User-ID", user)
}

// WithQuery adds query parameters
func WithQuery(params map[string]string) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Response wraps HTTP response with helpers
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals response body into v
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// String returns response body as string
func (r *Response) String() string {
	return string(r.Body)
}

// IsSuccess returns true if status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Envelope is the {success, message, data} wrapper used by most endpoints.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Envelope decodes the response as an envelope and its data into v, if v is non-nil.
func (r *Response) Envelope(v interface{}) (*Envelope, error) {
	var env Envelope
	if err := r.JSON(&env); err != nil {
		return nil, err
	}
	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return nil, err
		}
	}
	return &env, nil
}

// Get performs HTTP GET request
func (c *TestClient) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs HTTP POST request with JSON body
func (c *TestClient) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts...)
}

// do performs the actual HTTP request
func (c *TestClient) do(ctx context.Context, method, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	fullURL := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// ==================== Commands ====================

// ListCommands fetches the catalog joined with execution data.
func (c *TestClient) ListCommands(ctx context.Context) ([]types.CommandView, error) {
	resp, err := c.Get(ctx, "/list")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("list commands: status %d: %s", resp.StatusCode, resp.String())
	}
	var views []types.CommandView
	return views, resp.JSON(&views)
}

// RunCommand runs name. The raw response is returned so callers can check
// error statuses.
func (c *TestClient) RunCommand(ctx context.Context, name string, args, opts map[string]any, reqOpts ...RequestOption) (*Response, error) {
	body := map[string]any{"command": name}
	if args != nil {
		body["arguments"] = args
	}
	if opts != nil {
		body["options"] = opts
	}
	return c.Post(ctx, "/run", body, reqOpts...)
}

// Run runs name and decodes the execution result.
func (c *TestClient) Run(ctx context.Context, name string, args, opts map[string]any, reqOpts ...RequestOption) (*types.ExecutionResult, error) {
	resp, err := c.RunCommand(ctx, name, args, opts, reqOpts...)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("run %s: status %d: %s", name, resp.StatusCode, resp.String())
	}
	var result types.ExecutionResult
	return &result, resp.JSON(&result)
}

// Retry re-runs name with its last arguments.
func (c *TestClient) Retry(ctx context.Context, name string, reqOpts ...RequestOption) (*Response, error) {
	return c.Post(ctx, "/retry", map[string]any{"command": name}, reqOpts...)
}

// ==================== Executions ====================

// History fetches the execution history of name.
func (c *TestClient) History(ctx context.Context, name string) ([]types.ExecutionRecord, error) {
	resp, err := c.Get(ctx, "/"+url.PathEscape(name)+"/history")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("history %s: status %d: %s", name, resp.StatusCode, resp.String())
	}
	var records []types.ExecutionRecord
	_, err = resp.Envelope(&records)
	return records, err
}

// Stats fetches the aggregate statistics of name.
func (c *TestClient) Stats(ctx context.Context, name string) (*types.AggregateStats, error) {
	resp, err := c.Get(ctx, "/"+url.PathEscape(name)+"/stats")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("stats %s: status %d: %s", name, resp.StatusCode, resp.String())
	}
	var stats types.AggregateStats
	_, err = resp.Envelope(&stats)
	return &stats, err
}

// Dashboard fetches the dashboard summary.
func (c *TestClient) Dashboard(ctx context.Context) (*types.DashboardStats, error) {
	resp, err := c.Get(ctx, "/dashboard")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("dashboard: status %d: %s", resp.StatusCode, resp.String())
	}
	var stats types.DashboardStats
	_, err = resp.Envelope(&stats)
	return &stats, err
}
