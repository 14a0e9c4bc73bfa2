// Package apiclient is the single configured HTTP client for the remote shop API.
//
// Every call is one attempt: there is no retry, backoff or client-side timeout
// beyond the caller's context. When the bound TokenSource yields a token it is sent
// as a bearer credential.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// CorrelationHeader carries the inbound request id to the API.
const CorrelationHeader = "X-Correlation-ID"

var apiCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "storefront",
	Name:      "api_requests_total",
	Help:      "Requests issued to the shop API by method and status code.",
}, []string{"method", "status"})

// TokenSource yields the credential of the current session, or "" when anonymous.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Client issues requests against the shop API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     zerolog.Logger
}

// New creates a client rooted at baseURL. All paths are joined under it.
func New(baseURL string, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: httpClient,
		logger:     logger.With().Str("component", "api-client").Logger(),
	}, nil
}

// WithTokenSource returns a copy of the client bound to one session's credential.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// Get issues a GET and decodes the response body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends body as JSON (when non-nil) and decodes a 2xx response into out (when
// non-nil). Non-2xx responses return *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, reader, contentType, out)
}

// SendMultipart sends a multipart/form-data body, used by the product forms.
func (c *Client) SendMultipart(ctx context.Context, method, path string, form *Multipart, out any) error {
	payload, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s %s form: %w", method, path, err)
	}
	return c.send(ctx, method, path, bytes.NewReader(payload), contentType, out)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	correlationID := correlationIDFrom(ctx)
	req.Header.Set(CorrelationHeader, correlationID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiCalls.WithLabelValues(method, "error").Inc()
		c.logger.Warn().
			Err(err).
			Str("method", method).
			Str("path", path).
			Str("correlation_id", correlationID).
			Msg("api request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	apiCalls.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("correlation_id", correlationID).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(method, path, resp)
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("api returned an error status")
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func correlationIDFrom(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
