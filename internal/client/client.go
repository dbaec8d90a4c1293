// Package client is the HTTP side of the action dispatcher: a thin client
// for the REST facade. Every operation issues exactly one request; there is
// no retry. A fixed timeout is opted in only by the offline import/export
// path, never by the interactive UI.
package client

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

	"haru/internal/model"
)

// ErrNotFound is returned when the facade reports a missing record.
var ErrNotFound = errors.New("client: todo not found")

// StatusError is a non-2xx response from the facade.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed: status %d", e.StatusCode)
}

// Client talks to the REST facade at a base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets a fixed request timeout (import/export utilities only).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("client: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid base URL: %w", err)
	}
	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches all records, newest first.
func (c *Client) List(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, "/api/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// Create posts a new record. Blank titles are rejected before any request.
func (c *Client) Create(ctx context.Context, title string, completed bool) (model.Todo, error) {
	if strings.TrimSpace(title) == "" {
		return model.Todo{}, model.ErrEmptyTitle
	}
	body := map[string]any{"title": title, "completed": completed}
	var created model.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", body, &created); err != nil {
		return model.Todo{}, err
	}
	return created, nil
}

// CreateRecord posts a record preserving its creation time when set; the id
// is reassigned server-side. Used by the import utility.
func (c *Client) CreateRecord(ctx context.Context, t model.Todo) (model.Todo, error) {
	if strings.TrimSpace(t.Title) == "" {
		return model.Todo{}, model.ErrEmptyTitle
	}
	body := map[string]any{"title": t.Title, "completed": t.Completed}
	if !t.CreatedAt.IsZero() {
		body["createdAt"] = t.CreatedAt
	}
	var created model.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", body, &created); err != nil {
		return model.Todo{}, err
	}
	return created, nil
}

// Update sends a partial patch for an existing record.
func (c *Client) Update(ctx context.Context, id string, patch model.Patch) (model.Todo, error) {
	if strings.TrimSpace(id) == "" {
		return model.Todo{}, model.ErrMissingID
	}
	var merged model.Todo
	if err := c.do(ctx, http.MethodPut, "/api/todos/"+url.PathEscape(id), patch, &merged); err != nil {
		return model.Todo{}, err
	}
	return merged, nil
}

// Delete removes a record. The facade is idempotent about absent ids.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return model.ErrMissingID
	}
	var resp struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, &resp)
}

// PageContext is the locale/timezone pair the data loader fetches once.
type PageContext struct {
	Locale   string `json:"locale"`
	Timezone string `json:"timezone"`
}

// Context fetches the locale/timezone context from the facade.
func (c *Client) Context(ctx context.Context) (PageContext, error) {
	var pc PageContext
	if err := c.do(ctx, http.MethodGet, "/api/context", nil, &pc); err != nil {
		return PageContext{}, err
	}
	return pc, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return err
	}
	full := c.baseURL.ResolveReference(ref).String()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, full, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w (status 404)", ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
