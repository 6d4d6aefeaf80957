package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"

	"github.com/giantswarm/courier/pkg/content"
	"github.com/giantswarm/courier/pkg/instrumentation"
)

// Client sends requests whose bodies and responses are converted through a
// content.Registry.
//
// A Client is safe for concurrent use. Options are applied once; use
// WithAuthorizer to derive a client bound to other credentials.
type Client struct {
	registry   *content.Registry
	base       http.RoundTripper
	authorizer Authorizer
	userAgent  string
	headers    http.Header
	timeout    time.Duration
	limiter    *rate.Limiter
	inst       *instrumentation.Instrumentation
	metrics    *instrumentation.Metrics
	logger     *slog.Logger

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	httpClient *http.Client
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		headers:   http.Header{},
		userAgent: "courier/" + versioninfo.Short(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.registry == nil {
		c.registry = content.DefaultRegistry()
	}
	c.metrics = c.inst.Metrics()
	c.httpClient = c.buildHTTPClient()
	return c
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns a process-wide client with default options, created on
// first use.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = New()
	})
	return defaultClient
}

// WithAuthorizer returns a copy of c authorizing requests with a. The
// registry and transport are shared.
func (c *Client) WithAuthorizer(a Authorizer) *Client {
	cp := *c
	cp.headers = c.headers.Clone()
	cp.authorizer = a
	cp.httpClient = cp.buildHTTPClient()
	return &cp
}

// Registry returns the converter registry.
func (c *Client) Registry() *content.Registry {
	return c.registry
}

// HTTPClient returns the underlying client, including authorization and
// retries.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Request describes an outgoing call.
type Request struct {
	Method string
	URL    string

	// ContentType selects the body encoding. When empty the first converter
	// accepting the body picks its default.
	ContentType string

	// Body is any value the registry can serialize, a *content.Content sent
	// as is, or a *content.MultiPart.
	Body any

	Header http.Header
}

// BuildRequest converts r into an http.Request. When out is non-nil every
// converter contributes Accept entries for its kind.
func (c *Client) BuildRequest(ctx context.Context, r Request, out any) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	body, extra, err := c.serializeBody(ctx, r.ContentType, r.Body)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = body.Reader()
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}

	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		for k, vs := range body.Header {
			req.Header[k] = append([]string(nil), vs...)
		}
		if n := body.Len(); n >= 0 {
			req.ContentLength = n
		}
	}
	// multipart request headers are copied verbatim
	for k, v := range extra {
		req.Header[k] = []string{v}
	}
	for k, vs := range r.Header {
		req.Header[k] = append(req.Header[k], vs...)
	}

	if out != nil {
		if kind := content.KindOf(out); kind != content.KindRaw && kind != content.KindUnknown {
			c.registry.AddAcceptHeaders(kind, req.Header)
		}
	}

	return req, nil
}

func (c *Client) serializeBody(ctx context.Context, contentType string, v any) (*content.Content, map[string]string, error) {
	kind := content.KindOf(v)
	switch kind {
	case content.KindUnknown:
		return nil, nil, nil
	case content.KindRaw:
		switch raw := v.(type) {
		case *content.Content:
			return raw, nil, nil
		case content.Content:
			return &raw, nil, nil
		}
	case content.KindMultipart:
		mp := v.(*content.MultiPart)
		body, err := mp.Assemble(c.registry)
		c.metrics.RecordConversion(ctx, kind.String(), string(content.Serialize), err)
		if err != nil {
			return nil, nil, err
		}
		return body, mp.RequestHeaders(), nil
	}

	body, err := c.registry.Serialize(kind, contentType, v)
	c.metrics.RecordConversion(ctx, kind.String(), string(content.Serialize), err)
	if err != nil {
		return nil, nil, err
	}
	return body, nil, nil
}

// ParseResponse converts the response body into out. A *content.Content
// target receives the buffered body unchanged. Stream targets take
// ownership of the body; for every other target it is closed.
//
// When no converter accepts a string target the body is read as text.
func (c *Client) ParseResponse(ctx context.Context, resp *http.Response, out any) error {
	kind := content.KindOf(out)
	if kind != content.KindStream {
		defer resp.Body.Close()
	}

	switch kind {
	case content.KindUnknown:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case content.KindRaw:
		target, ok := out.(*content.Content)
		if !ok {
			return fmt.Errorf("client: raw content target must be *content.Content, got %T", out)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("client: reading response: %w", err)
		}
		raw := content.New("", data)
		raw.Header = resp.Header.Clone()
		*target = *raw
		return nil
	}

	body := content.FromResponse(resp)
	err := c.registry.Deserialize(kind, body, out)
	if errors.Is(err, content.ErrUnsupportedType) && kind == content.KindString {
		if target, ok := out.(*string); ok {
			var text string
			text, err = content.ReadText(body)
			if err == nil {
				*target = text
			}
		}
	}
	c.metrics.RecordConversion(ctx, kind.String(), string(content.Deserialize), err)
	return err
}

// Send performs req through the client's transport stack.
func (c *Client) Send(req *http.Request) (*http.Response, error) {
	c.logger.Debug("Sending request", "method", req.Method, "url", req.URL.Redacted())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Received response", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode)
	return resp, nil
}

// Do builds r, sends it and parses a 2xx response into out. Other
// responses yield a *StatusError.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	req, err := c.BuildRequest(ctx, r, out)
	if err != nil {
		return err
	}

	resp, err := c.Send(req)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       string(data),
		}
	}

	return c.ParseResponse(ctx, resp, out)
}

// Get fetches uri into out.
func (c *Client) Get(ctx context.Context, uri string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: uri}, out)
}

// Post sends body to uri and parses the response into out.
func (c *Client) Post(ctx context.Context, uri string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: uri, Body: body}, out)
}

// Put sends body to uri and parses the response into out.
func (c *Client) Put(ctx context.Context, uri string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, URL: uri, Body: body}, out)
}

// Delete deletes uri and parses the response into out.
func (c *Client) Delete(ctx context.Context, uri string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, URL: uri}, out)
}

// GetAs fetches uri into a new T.
func GetAs[T any](ctx context.Context, c *Client, uri string) (T, error) {
	var out T
	err := c.Get(ctx, uri, &out)
	return out, err
}
