package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestInstrumentation(t *testing.T) (*Instrumentation, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	inst, err := New(Config{Enabled: true, MeterProvider: provider})
	require.NoError(t, err)
	return inst, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[attribute.Distinct]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[attribute.Distinct]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				out[dp.Attributes.Equivalent()] = dp.Value
			}
		}
	}
	return out
}

func TestMetrics_RecordTokenExchange(t *testing.T) {
	ctx := context.Background()
	inst, reader := newTestInstrumentation(t)
	m := inst.Metrics()

	m.RecordTokenExchange(ctx, "oauth2", "refresh_token", nil)
	m.RecordTokenExchange(ctx, "oauth2", "refresh_token", nil)
	m.RecordTokenExchange(ctx, "oauth2", "refresh_token", errors.New("invalid_grant"))

	sums := collectSum(t, reader, "courier.oauth.token_exchanges")
	success := attribute.NewSet(
		attribute.String(AttrProtocol, "oauth2"),
		attribute.String(AttrLeg, "refresh_token"),
		attribute.String(AttrOutcome, OutcomeSuccess),
	)
	failure := attribute.NewSet(
		attribute.String(AttrProtocol, "oauth2"),
		attribute.String(AttrLeg, "refresh_token"),
		attribute.String(AttrOutcome, OutcomeFailure),
	)
	assert.Equal(t, int64(2), sums[success.Equivalent()])
	assert.Equal(t, int64(1), sums[failure.Equivalent()])
}

func TestMetrics_RecordAuthorizationAndSignature(t *testing.T) {
	ctx := context.Background()
	inst, reader := newTestInstrumentation(t)
	m := inst.Metrics()

	m.RecordAuthorization(ctx, "LocalhostServer", nil)
	m.RecordSignature(ctx, "HMAC-SHA1")
	m.RecordConversion(ctx, "value", "deserialize", nil)
	m.RecordLockWait(ctx, 5*time.Millisecond)

	auth := collectSum(t, reader, "courier.oauth.authorizations")
	assert.Len(t, auth, 1)

	sigs := collectSum(t, reader, "courier.oauth1.signatures")
	set := attribute.NewSet(attribute.String(AttrSignatureMethod, "HMAC-SHA1"))
	assert.Equal(t, int64(1), sigs[set.Equivalent()])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordTokenExchange(ctx, "oauth1", "access_token", nil)
		m.RecordAuthorization(ctx, "OutOfBand", errors.New("x"))
		m.RecordLockWait(ctx, time.Second)
		m.RecordSignature(ctx, "PLAINTEXT")
		m.RecordConversion(ctx, "image", "serialize", nil)
	})
}

func TestNoop(t *testing.T) {
	inst := Noop()
	assert.False(t, inst.Enabled())
	require.NotNil(t, inst.Metrics())
	assert.NotPanics(t, func() {
		inst.Metrics().RecordSignature(context.Background(), "HMAC-SHA1")
		_, span := inst.Tracer("oauth").Start(context.Background(), "noop")
		RecordError(span, errors.New("boom"))
		span.End()
	})
}
