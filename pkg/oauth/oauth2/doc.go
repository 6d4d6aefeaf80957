// Package oauth2 manages the OAuth 2.0 token lifecycle for one set of
// client settings: the authorization-code grant (with optional PKCE), the
// refresh-token grant, expiry tracking and bearer request authorization.
//
// All credential changes happen under the settings lock, so concurrent
// EnsureValidToken callers trigger a single exchange. A refresh rejected
// with invalid_grant discards the refresh token and restarts the
// interactive flow.
//
// Settings.IsAccessTokenExpired clears an expired token as part of the
// check. This is relied upon: a positive check leaves the credential
// without an access token, and an immediate second check returns false.
package oauth2
