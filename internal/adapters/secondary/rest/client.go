package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/infrastructure/logging"
)

const (
	// RequestIDHeader correlates client logs with backend logs.
	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 10 << 20
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the backend origin, e.g. "https://api.tiback.io".
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with Timeout is built.
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil. Zero means 30s.
	Timeout time.Duration
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client talks JSON to the TiBACK backend. It holds no credentials; every
// authenticated call takes the bearer token explicitly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	requests   *logging.HTTPRequestLogger
}

// Ensure Client implements the ports.BackendAPI interface.
var _ ports.BackendAPI = (*Client)(nil)

// NewClient creates a backend client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("rest: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("rest: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("rest: BaseURL %q must be http or https", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rest_client")

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		requests:   &logging.HTTPRequestLogger{Logger: logger},
	}, nil
}

// BaseURL returns the backend origin without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("rest: failed to create request: %w", err)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("rest: backend unreachable: %w", err)
	}
	_ = response.Body.Close()
	return nil
}

// doJSON sends body as JSON (when non-nil) and decodes a 2xx response into out
// (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	raw, err := c.doRequest(ctx, method, path, token, contentType, reader)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("rest: failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// doRequest performs one HTTP exchange and returns the body of a 2xx
// response. Non-2xx responses become *APIError.
func (c *Client) doRequest(ctx context.Context, method, path, token, contentType string, body io.Reader) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("rest: failed to create request: %w", err)
	}

	request.Header.Set("Accept", "application/json")
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := logging.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	request.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.requests.LogRequest(ctx, method, path, 0, time.Since(start), 0, err)
		return nil, fmt.Errorf("rest: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	c.requests.LogRequest(ctx, method, path, response.StatusCode, time.Since(start), int64(len(responseBody)), err)
	if err != nil {
		return nil, fmt.Errorf("rest: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}
	return nil, newAPIError(response.StatusCode, responseBody)
}

// decodeEnvelope decodes raw into out, unwrapping the first of keys present
// in a JSON object. The backend is not consistent about wrapping payloads.
func decodeEnvelope(raw []byte, out any, keys ...string) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' && len(keys) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err == nil {
			for _, key := range keys {
				if inner, ok := fields[key]; ok && isContainer(inner) {
					return json.Unmarshal(inner, out)
				}
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}

// isContainer reports whether raw holds an object or array. Scalars under an
// envelope key are fields of the payload itself, not a wrapper.
func isContainer(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && (raw[0] == '{' || raw[0] == '[')
}

// getEnvelope performs a GET and decodes the result with decodeEnvelope.
func (c *Client) getEnvelope(ctx context.Context, path, token string, out any, keys ...string) error {
	raw, err := c.doRequest(ctx, http.MethodGet, path, token, "", nil)
	if err != nil {
		return err
	}
	if err := decodeEnvelope(raw, out, keys...); err != nil {
		return fmt.Errorf("rest: failed to decode GET %s response: %w", path, err)
	}
	return nil
}

// sendEnvelope performs a JSON write and decodes the result with decodeEnvelope.
func (c *Client) sendEnvelope(ctx context.Context, method, path, token string, body, out any, keys ...string) error {
	var raw json.RawMessage
	if err := c.doJSON(ctx, method, path, token, body, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := decodeEnvelope(raw, out, keys...); err != nil {
		return fmt.Errorf("rest: failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
