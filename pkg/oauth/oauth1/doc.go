// Package oauth1 implements OAuth 1.0a (RFC 5849) request signing and the
// three-legged token flow.
//
// The signature base string, signing key and digest are exposed as pure
// functions (BaseString, SigningKey, ComputeHash). Engine drives the flow:
//
//	request token -> user authorization -> verifier -> access token
//
// The request token leg runs once the code receiver has chosen its redirect
// URL, so a loopback listener on port 0 still yields a usable
// oauth_callback. Any failure resets the credential to the no-token state.
//
// Engine.Wrap returns an http.RoundTripper that signs every request, using
// HMAC-SHA1, PLAINTEXT or RSA-SHA1.
package oauth1
