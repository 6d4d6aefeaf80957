package client

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/giantswarm/courier/pkg/content"
	"github.com/giantswarm/courier/pkg/instrumentation"
)

// Authorizer decorates a transport with request authorization. The OAuth1
// engine and the OAuth2 manager implement it.
type Authorizer interface {
	Wrap(base http.RoundTripper) http.RoundTripper
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(base http.RoundTripper) http.RoundTripper

func (f AuthorizerFunc) Wrap(base http.RoundTripper) http.RoundTripper {
	return f(base)
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry sets the converter registry. Defaults to
// content.DefaultRegistry().
func WithRegistry(r *content.Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithTransport sets the base transport that performs network I/O.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// WithAuthorizer installs request authorization.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Client) {
		c.authorizer = a
	}
}

// WithUserAgent overrides the default User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithTimeout bounds each call including retries.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries retries connection errors, 429 and 5xx responses up to max
// times. Each attempt passes through the authorizer again, so OAuth1
// requests are re-signed.
func WithRetries(max int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryMax = max
		c.retryWaitMin = waitMin
		c.retryWaitMax = waitMax
	}
}

// WithRateLimit limits outgoing requests to rps per second with the given
// burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithInstrumentation traces requests and records conversion metrics.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(c *Client) {
		c.inst = inst
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
