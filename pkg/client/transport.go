package client

import (
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/giantswarm/courier/pkg/logging"
)

// limitedTransport waits for the limiter before each round trip.
type limitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient assembles the transport stack, innermost first:
// network, tracing, rate limit, authorization, retries.
func (c *Client) buildHTTPClient() *http.Client {
	rt := c.base
	if rt == nil {
		rt = cleanhttp.DefaultPooledTransport()
	}

	if c.inst != nil && c.inst.Enabled() {
		rt = otelhttp.NewTransport(rt,
			otelhttp.WithTracerProvider(c.inst.TracerProvider()),
			otelhttp.WithMeterProvider(c.inst.MeterProvider()))
	}

	if c.limiter != nil {
		rt = &limitedTransport{limiter: c.limiter, base: rt}
	}

	if c.authorizer != nil {
		rt = c.authorizer.Wrap(rt)
	}

	if c.retryMax <= 0 {
		return &http.Client{Transport: rt, Timeout: c.timeout}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Transport: rt}
	retryClient.RetryMax = c.retryMax
	if c.retryWaitMin > 0 {
		retryClient.RetryWaitMin = c.retryWaitMin
	}
	if c.retryWaitMax > 0 {
		retryClient.RetryWaitMax = c.retryWaitMax
	}
	retryClient.Logger = retryablehttp.LeveledLogger(logging.RetryLogger{Logger: c.logger})
	// hand the last response back instead of a generic "giving up" error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := retryClient.StandardClient()
	client.Timeout = c.timeout
	return client
}
