package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingVerifier is returned when an OAuth1 callback carries no
	// verifier and the settings require one.
	ErrMissingVerifier = errors.New("oauth: authorization returned no verifier")

	// ErrAuthorizationDenied is matched by AuthorizationError.
	ErrAuthorizationDenied = errors.New("oauth: authorization denied")

	// ErrAuthorizationTimeout is returned when no callback arrived within the
	// configured callback timeout.
	ErrAuthorizationTimeout = errors.New("oauth: authorization timed out")

	// ErrInvalidGrant is matched when the token endpoint rejects a grant with
	// invalid_grant. The refresh token has been discarded at that point.
	ErrInvalidGrant = errors.New("oauth: invalid grant")

	// ErrUnsupportedMode is returned for authorize modes without a receiver.
	ErrUnsupportedMode = errors.New("oauth: unsupported authorize mode")

	// ErrStateMismatch is returned when the callback state does not match
	// the state sent with the authorization request.
	ErrStateMismatch = errors.New("oauth: state mismatch")
)

// Leg names a step of an OAuth flow.
type Leg string

const (
	LegRequestToken      Leg = "request_token"
	LegAuthorize         Leg = "authorize"
	LegAccessToken       Leg = "access_token"
	LegAuthorizationCode Leg = "authorization_code"
	LegRefreshToken      Leg = "refresh_token"
)

// ExchangeError reports a failed token endpoint call.
type ExchangeError struct {
	Leg        Leg
	StatusCode int
	Body       string
	Err        error
}

func (e *ExchangeError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("oauth: %s exchange failed with status %d: %v", e.Leg, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("oauth: %s exchange failed: %v", e.Leg, e.Err)
	default:
		return fmt.Sprintf("oauth: %s exchange failed with status %d", e.Leg, e.StatusCode)
	}
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// ProviderError is an RFC 6749 error response from a token endpoint.
type ProviderError struct {
	Code        string
	Description string
	URI         string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrInvalidGrant && e.Code == "invalid_grant"
}

// AuthorizationError is an error reported by the provider on the redirect
// back from the authorization step.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth: authorization failed: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("oauth: authorization failed: %s", e.Code)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrAuthorizationDenied
}
