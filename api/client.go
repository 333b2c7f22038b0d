package api

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

	"github.com/google/uuid"
	"github.com/pgcportal/portal/events"
)

// DefaultPrefix is the versioned API prefix every path is resolved against.
const DefaultPrefix = "/api/v1"

// Auth endpoints exempt from the unauthorized broadcast.
const (
	PathLogin  = "/auth/login"
	PathLogout = "/auth/logout"
)

// Observer receives one callback per completed request. Status is 0 when the
// request never produced a response.
type Observer interface {
	ObserveRequest(method, path string, status int, latency time.Duration, err error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Prefix     string
	HTTPClient *http.Client
	Publisher  events.Publisher
	Observer   Observer
	// RequestID generates X-Request-ID values. Defaults to uuid.NewString.
	RequestID func() string
	// Timeout bounds each request when positive. Zero leaves requests
	// unbounded apart from the caller's context.
	Timeout time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	base      string
	http      *http.Client
	publisher events.Publisher
	observer  Observer
	requestID func() string
	timeout   time.Duration
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidInput)
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidInput, cfg.BaseURL)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	c := &Client{
		base:      base + prefix,
		http:      cfg.HTTPClient,
		publisher: cfg.Publisher,
		observer:  cfg.Observer,
		requestID: cfg.RequestID,
		timeout:   cfg.Timeout,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.requestID == nil {
		c.requestID = uuid.NewString
	}
	return c, nil
}

// Request describes one API call. Path is relative to the API prefix.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header

	// Body is JSON-encoded when set. RawBody is sent as-is with ContentType
	// and takes precedence over Body.
	Body        any
	RawBody     io.Reader
	ContentType string

	Token       string
	RequireAuth bool
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *Error          `json:"error"`
}

// Do performs req and decodes the envelope's data into out when out is
// non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, latency, err := c.send(ctx, req)
	if err != nil {
		c.observe(req, 0, latency, err)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("%w: reading body: %v", ErrRequestFailed, err)
		c.observe(req, resp.StatusCode, latency, err)
		return err
	}

	err = decodeEnvelope(resp.StatusCode, body, out)
	c.observe(req, resp.StatusCode, latency, err)
	return err
}

// DoRaw performs req and returns the raw body of a successful response, for
// binary downloads. Non-OK responses are decoded as envelopes.
func (c *Client) DoRaw(ctx context.Context, req Request) ([]byte, string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, latency, err := c.send(ctx, req)
	if err != nil {
		c.observe(req, 0, latency, err)
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("%w: reading body: %v", ErrRequestFailed, err)
		c.observe(req, resp.StatusCode, latency, err)
		return nil, "", err
	}

	if !statusOK(resp.StatusCode) {
		err = decodeEnvelope(resp.StatusCode, body, nil)
		c.observe(req, resp.StatusCode, latency, err)
		return nil, "", err
	}

	c.observe(req, resp.StatusCode, latency, nil)
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, time.Duration, error) {
	if req.RequireAuth && strings.TrimSpace(req.Token) == "" {
		return nil, 0, fmt.Errorf("%w: missing access token", ErrUnauthorized)
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, latency, ctxErr
		}
		return nil, latency, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthEndpoint(req.Path) {
		c.publishUnauthorized(ctx, req.Path, resp.StatusCode)
	}

	return resp, latency, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.base + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.RawBody != nil:
		body = req.RawBody
		contentType = req.ContentType
	case req.Body != nil:
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding body: %v", ErrInvalidInput, err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", c.requestID())
	}
	return httpReq, nil
}

func (c *Client) publishUnauthorized(ctx context.Context, path string, status int) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(ctx, events.Event{
		Name:   events.AuthUnauthorized,
		Path:   stripQuery(path),
		Status: status,
	})
}

func (c *Client) observe(req Request, status int, latency time.Duration, err error) {
	if c.observer == nil {
		return
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	c.observer.ObserveRequest(method, stripQuery(req.Path), status, latency, err)
}

func decodeEnvelope(status int, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if !statusOK(status) {
			return &Error{
				Status:  status,
				Code:    CodeRequestFailed,
				Message: fmt.Sprintf("%s (HTTP %d)", MessageRequestFailed, status),
				cause:   ErrRequestFailed,
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if !env.Success || !statusOK(status) {
		apiErr := &Error{Status: status}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
			apiErr.RequestID = env.Error.RequestID
			apiErr.Timestamp = env.Error.Timestamp
		}
		if apiErr.Code == "" {
			apiErr.Code = CodeRequestFailed
		}
		if apiErr.Message == "" {
			apiErr.Message = MessageRequestFailed
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decoding data: %v", ErrInvalidResponse, err)
	}
	return nil
}

func statusOK(status int) bool {
	return status >= 200 && status < 300
}

func isAuthEndpoint(path string) bool {
	p := "/" + strings.Trim(stripQuery(path), "/")
	return p == PathLogin || p == PathLogout
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
