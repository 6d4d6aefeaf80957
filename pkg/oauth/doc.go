// Package oauth holds the pieces shared by the OAuth1 and OAuth2 flows.
//
// Settings carries the client configuration and a binary lock. Every
// credential mutation (expiry checks, refreshes, interactive authorization)
// runs under that lock through Coordinator.Gate, so concurrent requests
// needing a token trigger a single exchange.
//
// The interactive step is delegated to a CodeReceiver chosen by the
// settings' AuthorizeMode:
//
//   - EmbeddedBrowser and LocalhostServer open the system browser and
//     receive the redirect on a one-shot loopback Listener
//   - OutOfBand prints the URL and reads the pasted code (OutOfBandAuto
//     opens the browser first)
//   - TestPassThrough requests the URL itself and reads the redirect
//
// The package also provides PKCE generation, WWW-Authenticate parsing and
// RFC 8414 / OIDC metadata discovery.
package oauth
