package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome attribute values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all metric instruments
type Metrics struct {
	// OAuth flow metrics
	TokenExchanges metric.Int64Counter
	Authorizations metric.Int64Counter
	LockWait       metric.Float64Histogram

	// OAuth1 metrics
	Signatures metric.Int64Counter

	// Content metrics
	Conversions metric.Int64Counter
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	oauthMeter := inst.Meter("oauth")
	contentMeter := inst.Meter("content")

	var err error
	m.TokenExchanges, err = oauthMeter.Int64Counter(
		"courier.oauth.token_exchanges",
		metric.WithDescription("Number of token endpoint exchanges"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_exchanges counter: %w", err)
	}

	m.Authorizations, err = oauthMeter.Int64Counter(
		"courier.oauth.authorizations",
		metric.WithDescription("Number of interactive authorization steps"),
		metric.WithUnit("{authorization}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizations counter: %w", err)
	}

	m.LockWait, err = oauthMeter.Float64Histogram(
		"courier.oauth.lock_wait",
		metric.WithDescription("Time spent waiting for the settings lock in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock_wait histogram: %w", err)
	}

	m.Signatures, err = oauthMeter.Int64Counter(
		"courier.oauth1.signatures",
		metric.WithDescription("Number of OAuth1 request signatures"),
		metric.WithUnit("{signature}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signatures counter: %w", err)
	}

	m.Conversions, err = contentMeter.Int64Counter(
		"courier.content.conversions",
		metric.WithDescription("Number of content conversions"),
		metric.WithUnit("{conversion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversions counter: %w", err)
	}

	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// RecordTokenExchange records a token endpoint call.
func (m *Metrics) RecordTokenExchange(ctx context.Context, protocol, leg string, err error) {
	if m == nil {
		return
	}
	m.TokenExchanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrProtocol, protocol),
		attribute.String(AttrLeg, leg),
		attribute.String(AttrOutcome, outcome(err)),
	))
}

// RecordAuthorization records an interactive authorization step.
func (m *Metrics) RecordAuthorization(ctx context.Context, mode string, err error) {
	if m == nil {
		return
	}
	m.Authorizations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAuthorizeMode, mode),
		attribute.String(AttrOutcome, outcome(err)),
	))
}

// RecordLockWait records how long a caller waited for the settings lock.
func (m *Metrics) RecordLockWait(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.LockWait.Record(ctx, float64(d)/float64(time.Millisecond))
}

// RecordSignature records an OAuth1 signature.
func (m *Metrics) RecordSignature(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.Signatures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrSignatureMethod, method)))
}

// RecordConversion records a content conversion.
func (m *Metrics) RecordConversion(ctx context.Context, kind, direction string, err error) {
	if m == nil {
		return
	}
	m.Conversions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrContentKind, kind),
		attribute.String(AttrDirection, direction),
		attribute.String(AttrOutcome, outcome(err)),
	))
}
