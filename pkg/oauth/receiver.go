package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// AuthorizationRequest is handed to a CodeReceiver for one interactive step.
type AuthorizationRequest struct {
	Settings *Settings

	// BuildURL returns the provider authorization URL for the redirect URL
	// the receiver will listen on.
	BuildURL func(redirectURL string) (string, error)

	redirectURL string
}

// URL builds the authorization URL for redirectURL and records it as the
// effective redirect of this request.
func (r *AuthorizationRequest) URL(redirectURL string) (string, error) {
	if r.BuildURL == nil {
		return "", fmt.Errorf("oauth: authorization request has no URL builder")
	}
	r.redirectURL = redirectURL
	return r.BuildURL(redirectURL)
}

// RedirectURL returns the redirect URL used by the receiver, once URL has
// been called.
func (r *AuthorizationRequest) RedirectURL() string {
	return r.redirectURL
}

// CodeReceiver performs the user-facing authorization step and returns the
// parameters the provider sent back (code, state, oauth_verifier, error...).
type CodeReceiver interface {
	ReceiveCode(ctx context.Context, mode AuthorizeMode, req *AuthorizationRequest) (map[string]string, error)
}

// CodeReceiverFunc adapts a function to CodeReceiver.
type CodeReceiverFunc func(ctx context.Context, mode AuthorizeMode, req *AuthorizationRequest) (map[string]string, error)

func (f CodeReceiverFunc) ReceiveCode(ctx context.Context, mode AuthorizeMode, req *AuthorizationRequest) (map[string]string, error) {
	return f(ctx, mode, req)
}

// flatten keeps the first value of each key.
func flatten(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// ParseCallback extracts callback parameters from text pasted by a user or
// read from a browser window title. It accepts a full redirect URL, a bare
// query string, "Success code=..." titles and a bare code, which is
// reported under both "code" and "oauth_verifier".
func ParseCallback(text string) map[string]string {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]string{}
	}

	if fields := strings.Fields(text); len(fields) > 1 {
		text = fields[len(fields)-1]
	}

	if _, query, ok := strings.Cut(text, "?"); ok {
		query, _, _ = strings.Cut(query, "#")
		if values, err := url.ParseQuery(query); err == nil {
			return flatten(values)
		}
	}
	if strings.Contains(text, "=") {
		if values, err := url.ParseQuery(text); err == nil {
			return flatten(values)
		}
	}
	return map[string]string{"code": text, "oauth_verifier": text}
}
