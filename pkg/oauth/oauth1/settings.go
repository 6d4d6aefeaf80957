package oauth1

import (
	"crypto/rsa"
	"fmt"
	"net/http"

	"github.com/giantswarm/courier/pkg/oauth"
)

// SignatureMethod names an RFC 5849 signature method.
type SignatureMethod string

const (
	HMACSHA1  SignatureMethod = "HMAC-SHA1"
	PlainText SignatureMethod = "PLAINTEXT"
	RSASHA1   SignatureMethod = "RSA-SHA1"
)

// ParseSignatureMethod validates a configured method name.
func ParseSignatureMethod(s string) (SignatureMethod, error) {
	switch m := SignatureMethod(s); m {
	case HMACSHA1, PlainText, RSASHA1:
		return m, nil
	case "":
		return HMACSHA1, nil
	default:
		return "", fmt.Errorf("oauth1: unsupported signature method %q", s)
	}
}

// FlowState tracks progress through the three-legged flow.
type FlowState int

const (
	StateNoToken FlowState = iota
	StateRequestTokenObtained
	StateVerifierObtained
	StateAccessTokenObtained
)

// String returns the string representation of the flow state.
func (s FlowState) String() string {
	switch s {
	case StateNoToken:
		return "NoToken"
	case StateRequestTokenObtained:
		return "RequestTokenObtained"
	case StateVerifierObtained:
		return "VerifierObtained"
	case StateAccessTokenObtained:
		return "AccessTokenObtained"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// Credential is the mutable OAuth1 token state. It is only modified while
// the settings lock is held.
type Credential struct {
	// Token is the request token until the access token replaces it.
	Token       string
	TokenSecret string
	Verifier    string
	State       FlowState
}

// Settings configures the OAuth1 flow. The embedded oauth.Settings carries
// the consumer key (ClientID), consumer secret (ClientSecret), the request
// token URL (TokenURL) and the authorization URI.
type Settings struct {
	oauth.Settings

	// AccessTokenURL is the third leg endpoint.
	AccessTokenURL string

	SignatureMethod SignatureMethod

	// RSAKey signs requests when SignatureMethod is RSA-SHA1.
	RSAKey *rsa.PrivateKey

	// CheckVerifier makes a callback without oauth_verifier an error.
	CheckVerifier bool

	// RequestTokenMethod and AccessTokenMethod default to POST.
	RequestTokenMethod string
	AccessTokenMethod  string

	// Realm is added to the Authorization header when set.
	Realm string

	Credential Credential
}

func (s *Settings) signatureMethod() SignatureMethod {
	if s.SignatureMethod == "" {
		return HMACSHA1
	}
	return s.SignatureMethod
}

func (s *Settings) requestTokenMethod() string {
	if s.RequestTokenMethod == "" {
		return http.MethodPost
	}
	return s.RequestTokenMethod
}

func (s *Settings) accessTokenMethod() string {
	if s.AccessTokenMethod == "" {
		return http.MethodPost
	}
	return s.AccessTokenMethod
}

// Validate reports missing configuration.
func (s *Settings) Validate() error {
	if s.ClientID == "" {
		return fmt.Errorf("oauth1: consumer key is required")
	}
	if s.TokenURL == "" || s.AccessTokenURL == "" {
		return fmt.Errorf("oauth1: request token and access token URLs are required")
	}
	if s.AuthorizationURI == "" {
		return fmt.Errorf("oauth1: authorization URI is required")
	}
	if _, err := ParseSignatureMethod(string(s.SignatureMethod)); err != nil {
		return err
	}
	if s.signatureMethod() == RSASHA1 && s.RSAKey == nil {
		return fmt.Errorf("oauth1: RSA-SHA1 requires an RSA private key")
	}
	return nil
}
