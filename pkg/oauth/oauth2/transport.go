package oauth2

import (
	"context"
	"net/http"

	xoauth2 "golang.org/x/oauth2"

	"github.com/giantswarm/courier/pkg/oauth"
)

// Transport adds a bearer token to each request. A 401 response carrying
// a Bearer invalid_token challenge drops the token so that the next request
// acquires a new one; the failed request is not retried.
type Transport struct {
	Manager *Manager

	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// Wrap returns a Transport around base.
func (m *Manager) Wrap(base http.RoundTripper) http.RoundTripper {
	return &Transport{Manager: m, Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cred, err := t.Manager.EnsureValidToken(ctx)
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	authed := req.Clone(ctx)
	cred.OAuth2Token().SetAuthHeader(authed)

	resp, err := t.base().RoundTrip(authed)
	if err != nil {
		return nil, err
	}

	if challenge := oauth.ParseWWWAuthenticateFromResponse(resp); challenge.IsInvalidToken() {
		t.Manager.logger.Debug("Server rejected access token", "description", challenge.ErrorDescription)
		if err := t.Manager.InvalidateAccessToken(ctx, cred.AccessToken); err != nil {
			t.Manager.logger.Warn("Failed to invalidate access token", "error", err)
		}
	}
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// TokenSource returns an oauth2.TokenSource backed by the manager, for use
// with libraries that accept one.
func (m *Manager) TokenSource(ctx context.Context) xoauth2.TokenSource {
	return &tokenSource{ctx: ctx, manager: m}
}

type tokenSource struct {
	ctx     context.Context
	manager *Manager
}

func (ts *tokenSource) Token() (*xoauth2.Token, error) {
	cred, err := ts.manager.EnsureValidToken(ts.ctx)
	if err != nil {
		return nil, err
	}
	return cred.OAuth2Token(), nil
}
