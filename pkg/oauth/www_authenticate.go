package oauth

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// authParamPattern matches key="quoted value" and key=token pairs.
var authParamPattern = regexp.MustCompile(`(\w+)=(?:"([^"]*)"|([^\s,"]+))`)

// ParseWWWAuthenticate parses a WWW-Authenticate header value.
//
// Example headers:
//
//	Bearer realm="example"
//	Bearer realm="example", error="invalid_token", error_description="The access token expired"
func ParseWWWAuthenticate(header string) (*AuthChallenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	scheme, rest, _ := strings.Cut(header, " ")
	challenge := &AuthChallenge{Scheme: scheme}

	params := parseAuthParams(rest)
	challenge.Realm = params["realm"]
	challenge.Scope = params["scope"]
	challenge.Error = params["error"]
	challenge.ErrorDescription = params["error_description"]

	return challenge, nil
}

// parseAuthParams parses the parameter portion of a WWW-Authenticate header.
func parseAuthParams(paramStr string) map[string]string {
	params := make(map[string]string)

	for _, match := range authParamPattern.FindAllStringSubmatch(paramStr, -1) {
		key := strings.ToLower(match[1])
		value := match[2]
		if value == "" {
			value = match[3]
		}
		params[key] = value
	}

	return params
}

// ParseWWWAuthenticateFromResponse extracts the challenge from a 401 response.
// Returns nil if no WWW-Authenticate header is present or if parsing fails.
func ParseWWWAuthenticateFromResponse(resp *http.Response) *AuthChallenge {
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return nil
	}

	for _, header := range resp.Header.Values("WWW-Authenticate") {
		challenge, err := ParseWWWAuthenticate(header)
		if err == nil && challenge.IsBearer() {
			return challenge
		}
	}

	return nil
}
