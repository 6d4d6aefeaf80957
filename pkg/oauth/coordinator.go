package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/courier/pkg/instrumentation"
)

// Callback is the outcome of an interactive authorization step.
type Callback struct {
	// Values holds the parameters sent back by the provider.
	Values map[string]string

	// RedirectURL is the redirect URL the receiver actually used. Token
	// exchanges must repeat it.
	RedirectURL string
}

// Coordinator serialises credential work on a Settings lock and dispatches
// interactive authorization to the CodeReceiver registered for the
// settings' AuthorizeMode.
type Coordinator struct {
	receivers map[AuthorizeMode]CodeReceiver
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	tracer    trace.Tracer
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithReceiver registers r for mode, replacing any default.
func WithReceiver(mode AuthorizeMode, r CodeReceiver) CoordinatorOption {
	return func(c *Coordinator) {
		c.receivers[mode] = r
	}
}

// WithCoordinatorLogger sets a custom logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithCoordinatorInstrumentation enables metrics and tracing.
func WithCoordinatorInstrumentation(inst *instrumentation.Instrumentation) CoordinatorOption {
	return func(c *Coordinator) {
		if inst == nil {
			return
		}
		c.metrics = inst.Metrics()
		c.tracer = inst.Tracer("oauth")
	}
}

// NewCoordinator returns a coordinator with the default receivers: the
// browser modes use a loopback listener, the out-of-band modes read from
// stdin and TestPassThrough follows redirects itself.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	browser := &LocalhostReceiver{Open: OpenBrowser}
	oob := &OutOfBandReceiver{Open: OpenBrowser}

	c := &Coordinator{
		receivers: map[AuthorizeMode]CodeReceiver{
			AuthorizeModeEmbeddedBrowser: browser,
			AuthorizeModeLocalhostServer: browser,
			AuthorizeModeOutOfBand:       oob,
			AuthorizeModeOutOfBandAuto:   oob,
			AuthorizeModeTestPassThrough: &PassThroughReceiver{},
		},
		logger: slog.Default(),
		tracer: instrumentation.Noop().Tracer("oauth"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Receiver returns the receiver registered for mode.
func (c *Coordinator) Receiver(mode AuthorizeMode) (CodeReceiver, bool) {
	r, ok := c.receivers[mode]
	return r, ok && r != nil
}

// Gate runs fn while holding the lock of s. The lock is released on every
// path, including panics in fn.
func (c *Coordinator) Gate(ctx context.Context, s *Settings, fn func(ctx context.Context) error) error {
	start := time.Now()
	release, err := s.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("oauth: waiting for settings lock: %w", err)
	}
	defer release()
	c.metrics.RecordLockWait(ctx, time.Since(start))

	return fn(ctx)
}

// Authorize runs the interactive step for s. buildURL receives the redirect
// URL chosen by the receiver. Callers must hold the settings lock.
func (c *Coordinator) Authorize(ctx context.Context, s *Settings, buildURL func(redirectURL string) (string, error)) (*Callback, error) {
	mode := s.AuthorizeMode
	ctx, span := c.tracer.Start(ctx, "oauth.authorize",
		trace.WithAttributes(
			attribute.String(instrumentation.AttrAuthorizeMode, mode.String()),
			attribute.String(instrumentation.AttrClientID, s.ClientID),
		))
	defer span.End()

	cb, err := c.authorize(ctx, s, buildURL)
	c.metrics.RecordAuthorization(ctx, mode.String(), err)
	if err != nil {
		instrumentation.RecordError(span, err)
		c.logger.Debug("Authorization failed", "mode", mode.String(), "error", err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return cb, nil
}

func (c *Coordinator) authorize(ctx context.Context, s *Settings, buildURL func(string) (string, error)) (*Callback, error) {
	receiver, ok := c.Receiver(s.AuthorizeMode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, s.AuthorizeMode)
	}

	if timeout := s.callbackTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := &AuthorizationRequest{Settings: s, BuildURL: buildURL}
	values, err := receiver.ReceiveCode(ctx, s.AuthorizeMode, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrAuthorizationTimeout, err)
		}
		return nil, err
	}
	if values == nil {
		values = map[string]string{}
	}

	if code := values["error"]; code != "" {
		return nil, &AuthorizationError{Code: code, Description: values["error_description"]}
	}

	return &Callback{Values: values, RedirectURL: req.RedirectURL()}, nil
}
