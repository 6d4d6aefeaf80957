// Package logging configures structured logging for courier.
//
// It wraps log/slog with a process-wide logger, a LogLevel type that maps onto
// slog levels, and printf-style helpers that tag each record with the
// subsystem that produced it:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("OAuth2", "Token refreshed for %s", clientID)
//	logging.Error("Client", err, "Request to %s failed", uri)
//
// Libraries in this module accept a *slog.Logger through functional options
// and fall back to slog.Default; ForSubsystem hands them a pre-tagged logger.
//
// Credential lifecycle events (tokens stored, refreshed, revoked) are recorded
// with Audit, which emits a SECURITY_AUDIT record carrying only non-secret
// attributes such as the client ID or a token fingerprint.
//
// RetryLogger adapts a slog.Logger to the leveled logger interface expected by
// hashicorp/go-retryablehttp.
package logging
