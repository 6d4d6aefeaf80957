// Package instrumentation provides OpenTelemetry metrics and tracing for
// courier.
//
// Instrumentation is opt-in. When Config.Enabled is false, no-op providers
// are used and recording costs nothing. When enabled, the providers given in
// the Config are used, falling back to the global providers registered with
// go.opentelemetry.io/otel.
//
// SECURITY: Never record credential values (access tokens, refresh tokens,
// authorization codes, client secrets, OAuth1 token secrets) as attributes.
// Only metadata such as the grant type, authorize mode or outcome is recorded.
//
// Recording methods on a nil *Metrics are no-ops, so components can hold an
// optional metrics pointer without checks at every call site.
package instrumentation
