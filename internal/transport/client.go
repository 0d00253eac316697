// Package transport issues HTTP requests against the PayFriend backend and
// decodes JSON responses.
package transport

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"payfriend/internal/tracing"
)

const (
	maxErrorBody    = 64 << 10
	maxResponseBody = 8 << 20

	// RequestIDHeader carries a per-request identifier to the backend.
	RequestIDHeader = "X-Request-ID"
)

// Error is the single failure kind the transport reports: the network was
// unreachable (Status 0), the backend answered non-2xx, or the body could not
// be decoded.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("transport: %s", e.Message)
	}
	return fmt.Sprintf("transport: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by a transport error, or 0.
func StatusOf(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// Malformed builds the error reported when a 2xx body is unusable.
func Malformed(status int, err error) *Error {
	return &Error{Status: status, Message: "malformed response body: " + err.Error(), Err: err}
}

// TokenSource returns the bearer token to attach, or "" for none.
type TokenSource func(ctx context.Context) string

// Config configures the client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	Token      TokenSource
	HTTPClient *http.Client
}

// Client is a small JSON-over-HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	token      TokenSource
}

// NewClient creates a client; a zero timeout defaults to 10s.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		token:      cfg.Token,
	}
}

// Do executes a request and returns the raw response. Non-2xx responses are
// turned into *Error and their body is consumed.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, &Error{Message: "failed to create request: " + err.Error(), Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: "request failed: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	return resp, nil
}

func statusError(resp *http.Response) *Error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
	msg := strings.TrimSpace(string(data))
	if len(data) > maxErrorBody {
		msg = strings.TrimSpace(string(data[:maxErrorBody])) + "...(truncated)"
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}

// GetRaw performs a GET and returns the response body.
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, int, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, resp.StatusCode, &Error{Status: resp.StatusCode, Message: "read response body: " + err.Error(), Err: err}
	}
	if len(data) > maxResponseBody {
		return nil, resp.StatusCode, Malformed(resp.StatusCode, fmt.Errorf("body exceeds %d bytes", maxResponseBody))
	}
	return data, resp.StatusCode, nil
}

// GetJSON performs a GET and decodes the JSON body into dst. A literal null
// body is malformed.
func (c *Client) GetJSON(ctx context.Context, path string, dst interface{}) error {
	_, err := c.getJSON(ctx, path, dst)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, dst interface{}) (int, error) {
	data, status, err := c.GetRaw(ctx, path)
	if err != nil {
		return status, err
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return status, Malformed(status, errors.New("body is null"))
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return status, Malformed(status, err)
	}
	return status, nil
}

// Get fetches path and decodes it as T. Each check runs on the decoded value;
// a failing check is reported as a malformed body.
func Get[T any](ctx context.Context, c *Client, path string, checks ...func(T) error) (T, error) {
	var out T
	status, err := c.getJSON(ctx, path, &out)
	if err != nil {
		var zero T
		return zero, err
	}
	for _, check := range checks {
		if err := check(out); err != nil {
			var zero T
			return zero, Malformed(status, err)
		}
	}
	return out, nil
}
