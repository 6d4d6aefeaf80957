package oauth2

import (
	"fmt"
	"time"

	xoauth2 "golang.org/x/oauth2"

	"github.com/giantswarm/courier/pkg/oauth"
)

// DefaultExpiryOffset is subtracted from the token lifetime so that a token
// is not sent just before it expires.
const DefaultExpiryOffset = 60 * time.Second

// Credential is the mutable OAuth2 token state. It is only modified while
// the settings lock is held.
type Credential struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
	TokenType            string

	// AuthorizationCode is set between the callback and the code exchange.
	AuthorizationCode string
}

// OAuth2Token converts the credential to an oauth2.Token.
func (c Credential) OAuth2Token() *xoauth2.Token {
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &xoauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    tokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.AccessTokenExpiresAt,
	}
}

// Settings configures the OAuth2 authorization-code and refresh-token
// grants. The embedded oauth.Settings carries the client credentials, the
// token endpoint and the authorization URI.
type Settings struct {
	oauth.Settings

	// Issuer enables RFC 8414 / OIDC discovery of TokenURL,
	// AuthorizationURI and RevocationURL when those are empty.
	Issuer string

	// RevocationURL is called on logout when set (RFC 7009).
	RevocationURL string

	Scopes []string

	// ExpiryOffset is added to the current time when checking expiry. Zero
	// means DefaultExpiryOffset; a negative value disables the offset.
	ExpiryOffset time.Duration

	// UsePKCE adds an S256 code challenge to the authorization request.
	UsePKCE bool

	Credential Credential

	clock func() time.Time
}

func (s *Settings) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}

func (s *Settings) expiryOffset() time.Duration {
	switch {
	case s.ExpiryOffset == 0:
		return DefaultExpiryOffset
	case s.ExpiryOffset < 0:
		return 0
	default:
		return s.ExpiryOffset
	}
}

// IsAccessTokenExpired reports whether the held access token has expired,
// allowing for the expiry offset.
//
// The check clears an expired access token, so calling it twice on an
// expired token returns true and then false. Callers rely on this: after a
// positive check the credential is in the "no access token" state. Must be
// called with the settings lock held.
func (s *Settings) IsAccessTokenExpired() bool {
	cred := &s.Credential
	if cred.AccessToken == "" || cred.AccessTokenExpiresAt.IsZero() {
		return false
	}
	if s.now().Add(s.expiryOffset()).Before(cred.AccessTokenExpiresAt) {
		return false
	}
	cred.AccessToken = ""
	cred.AccessTokenExpiresAt = time.Time{}
	return true
}

// HasValidAccessToken reports whether an unexpired access token is held.
// Like IsAccessTokenExpired it clears an expired token.
func (s *Settings) HasValidAccessToken() bool {
	if s.IsAccessTokenExpired() {
		return false
	}
	return s.Credential.AccessToken != ""
}

// needsDiscovery reports whether endpoints must be discovered from Issuer.
func (s *Settings) needsDiscovery() bool {
	return s.Issuer != "" && (s.TokenURL == "" || s.AuthorizationURI == "")
}

// storeEndpoint identifies the provider for persisted credentials.
func (s *Settings) storeEndpoint() string {
	if s.Issuer != "" {
		return s.Issuer
	}
	return s.TokenURL
}

// Validate reports missing configuration.
func (s *Settings) Validate() error {
	if s.ClientID == "" {
		return fmt.Errorf("oauth2: client ID is required")
	}
	if s.Issuer == "" && s.TokenURL == "" {
		return fmt.Errorf("oauth2: token URL or issuer is required")
	}
	return nil
}
