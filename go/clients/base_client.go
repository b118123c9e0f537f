package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HeaderProvider supplies headers for a single request. The session
// implements it so the Authorization header is always derived from the
// current token rather than set once on the client.
type HeaderProvider interface {
	Headers(ctx context.Context) map[string]string
}

// HeaderFunc adapts a function to HeaderProvider
type HeaderFunc func(ctx context.Context) map[string]string

func (f HeaderFunc) Headers(ctx context.Context) map[string]string { return f(ctx) }

// StaticHeaders is a fixed set of headers
type StaticHeaders map[string]string

func (s StaticHeaders) Headers(context.Context) map[string]string { return s }

// BearerToken builds a provider sending token as a bearer credential
func BearerToken(token string) HeaderProvider {
	if token == "" {
		return StaticHeaders{}
	}
	return StaticHeaders{"Authorization": "Bearer " + token}
}

// FieldError is a validation error the backend attached to one input
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Method     string
	Endpoint   string
	Message    string
	Errors     []FieldError
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API returned status code %d for %s %s: %s", e.StatusCode, e.Method, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API returned status code %d for %s %s, response: %s", e.StatusCode, e.Method, e.Endpoint, e.Body)
}

// Unauthorized reports whether the backend rejected the credentials
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// UnauthorizedHandler is invoked whenever a request comes back 401
type UnauthorizedHandler func(ctx context.Context, endpoint string)

type BaseClient struct {
	baseURL        string
	client         *http.Client
	headers        map[string]string
	provider       HeaderProvider
	onUnauthorized UnauthorizedHandler
}

func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

func (c *BaseClient) BaseURL() string {
	return c.baseURL
}

func (c *BaseClient) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// SetHTTPClient replaces the underlying HTTP client
func (c *BaseClient) SetHTTPClient(client *http.Client) {
	c.client = client
}

func (c *BaseClient) SetHeaderProvider(provider HeaderProvider) {
	c.provider = provider
}

func (c *BaseClient) SetUnauthorizedHandler(handler UnauthorizedHandler) {
	c.onUnauthorized = handler
}

// WithHeaderProvider returns a copy of the client using provider. The copy
// shares the underlying HTTP client and static headers.
func (c *BaseClient) WithHeaderProvider(provider HeaderProvider) *BaseClient {
	clone := *c
	clone.provider = provider
	return &clone
}

func (c *BaseClient) MakeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.provider != nil {
		for key, value := range c.provider.Headers(ctx) {
			req.Header.Set(key, value)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Endpoint:   endpoint,
			Body:       string(responseBody),
		}
		var errBody struct {
			Message string       `json:"message"`
			Errors  []FieldError `json:"errors"`
		}
		if json.Unmarshal(responseBody, &errBody) == nil {
			apiErr.Message = errBody.Message
			apiErr.Errors = errBody.Errors
		}

		if apiErr.Unauthorized() && c.onUnauthorized != nil {
			c.onUnauthorized(ctx, endpoint)
		}
		return nil, apiErr
	}

	return responseBody, nil
}

func (c *BaseClient) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodGet, endpoint, nil)
}

func (c *BaseClient) Post(ctx context.Context, endpoint string, body io.Reader) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodPost, endpoint, body)
}

func (c *BaseClient) Put(ctx context.Context, endpoint string, body io.Reader) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodPut, endpoint, body)
}

func (c *BaseClient) Delete(ctx context.Context, endpoint string) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodDelete, endpoint, nil)
}

// GetJSON decodes the response of a GET into out
func (c *BaseClient) GetJSON(ctx context.Context, endpoint string, out any) error {
	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PostJSON encodes in as the request body and decodes the response into
// out. Either may be nil.
func (c *BaseClient) PostJSON(ctx context.Context, endpoint string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	body, err := c.Post(ctx, endpoint, reader)
	if err != nil {
		return err
	}
	return decode(body, out)
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return nil
}
