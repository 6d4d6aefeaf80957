package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// 32 bytes encodes to 43 base64url characters, satisfying servers that
// require a minimum of 32 characters.
const stateBytes = 32

// GeneratePKCE generates a new S256 PKCE code verifier and challenge
// (RFC 7636).
func GeneratePKCE() *PKCEChallenge {
	verifier := oauth2.GenerateVerifier()

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: "S256",
	}
}

// GenerateState generates a random state parameter for OAuth.
// The state links the authorization response back to the request.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
