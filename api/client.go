// Package api is the single point of egress for every authenticated
// request the client makes. It centralizes base-URL configuration and
// bearer-token injection; callers get typed endpoint surfaces on top of
// one shared HTTP client.
//
// No retry, timeout escalation or circuit breaking happens here - a
// failed call surfaces its error unchanged to the caller. The one
// bounded-backoff retry the client performs lives in the guard package,
// which drives it through this client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/craftmarket/storefront/core"
)

// Client is the API gateway. All endpoint surfaces (auth, products,
// orders, vendors, admin) hang off this one client.
type Client struct {
	HTTPClient *http.Client

	baseURL   string
	tokens    core.TokenSource
	logger    core.Logger
	telemetry core.Telemetry
}

// New creates a gateway client for the API reachable at cfg.BaseURL.
// tokens supplies the bearer token attached to every request; a nil
// source or empty token sends the request unauthenticated.
func New(cfg core.APIConfig, tokens core.TokenSource, logger core.Logger, telemetry core.Telemetry) *Client {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	return &Client{
		// The transport propagates trace context and records per-request
		// spans; the hand-opened spans in Do nest inside them.
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		tokens:    tokens,
		logger:    logger,
		telemetry: telemetry,
	}
}

// BaseURL returns the configured API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope mirrors the remote API's response contract: a success flag,
// the payload under "data", and a human-readable error message.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// Do issues a JSON request against the API and decodes the enveloped
// payload into out (out may be nil when the caller only cares about
// success). The current bearer token, a request ID and the context are
// attached to every request.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	op := fmt.Sprintf("api.%s %s", method, path)

	ctx, span := c.telemetry.StartSpan(ctx, "api.request")
	defer span.End()
	span.SetAttribute("http.method", method)
	span.SetAttribute("http.path", path)

	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		span.RecordError(err)
		return &core.ClientError{Op: op, Kind: "transport", Message: "failed to create request", Err: err}
	}

	c.logger.Debug("API request initiated", map[string]interface{}{
		"operation": "api_request",
		"method":    method,
		"path":      path,
	})

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("API request failed - send error", map[string]interface{}{
			"operation": "api_request_error",
			"method":    method,
			"path":      path,
			"error":     err.Error(),
		})
		return &core.ClientError{Op: op, Kind: "transport", Err: core.ErrConnectionFailed, Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return &core.ClientError{Op: op, Kind: "transport", Message: "failed to read response", Err: err}
	}

	span.SetAttribute("http.status_code", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := c.handleError(op, resp.StatusCode, respBody)
		span.RecordError(apiErr)
		c.logger.Error("API request failed", map[string]interface{}{
			"operation":   "api_request_error",
			"method":      method,
			"path":        path,
			"status_code": resp.StatusCode,
		})
		return apiErr
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		span.RecordError(err)
		return &core.ClientError{Op: op, Kind: "transport", Message: "failed to parse response", Err: err}
	}

	payload := env.Data
	if payload == nil {
		// Some endpoints return the payload without an envelope
		payload = respBody
	}

	if err := json.Unmarshal(payload, out); err != nil {
		span.RecordError(err)
		return &core.ClientError{Op: op, Kind: "transport", Message: "failed to decode payload", Err: err}
	}

	return nil
}

// NewRequest builds a JSON request against the API with the bearer
// token, a request ID and the context attached. The chat consumer uses
// this directly so streamed responses still funnel through the gateway.
func (c *Client) NewRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// HandleError exposes the gateway's status-to-error mapping for callers
// that read response bodies themselves.
func (c *Client) HandleError(op string, statusCode int, body []byte) error {
	return c.handleError(op, statusCode, body)
}

// handleError maps API status codes onto the client's sentinel errors,
// preserving the body's own error message for user-facing display.
func (c *Client) handleError(op string, statusCode int, body []byte) error {
	message := string(body)
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != "" {
			message = env.Error
		} else if env.Message != "" {
			message = env.Message
		}
	}

	var sentinel error
	switch statusCode {
	case http.StatusUnauthorized:
		sentinel = core.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = core.ErrForbidden
	case http.StatusNotFound:
		sentinel = core.ErrNotFound
	case http.StatusTooManyRequests:
		sentinel = core.ErrRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		sentinel = core.ErrServiceUnavailable
	default:
		sentinel = core.ErrRequestFailed
	}

	return &core.ClientError{
		Op:      op,
		Kind:    "api",
		Message: message,
		Err:     sentinel,
	}
}

// get issues a GET request with optional query parameters
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}
