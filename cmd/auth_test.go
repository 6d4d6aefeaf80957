package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/courier/pkg/tokenstore"
)

// newProvider serves an OAuth2 provider that authorizes without user
// interaction, and a protected resource.
func newProvider(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var exchanges atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		redirect, err := url.Parse(q.Get("redirect_uri"))
		if !assert.NoError(t, err) {
			return
		}
		v := redirect.Query()
		v.Set("code", "the-code")
		v.Set("state", q.Get("state"))
		redirect.RawQuery = v.Encode()
		http.Redirect(w, r, redirect.String(), http.StatusFound)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "ref-1",
		})
	})
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"ada"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &exchanges
}

func oauth2Config(baseURL string) string {
	return `
defaultProfile: svc
profiles:
  svc:
    type: oauth2
    baseURL: ` + baseURL + `/api
    clientID: cli
    clientSecret: sec
    authorizationURI: ` + baseURL + `/authorize
    tokenURL: ` + baseURL + `/token
    redirectURL: http://localhost/callback
    authorizeMode: TestPassThrough
    scopes: [read]
`
}

func TestAuthLifecycle(t *testing.T) {
	srv, exchanges := newProvider(t)
	dir := writeTestConfig(t, oauth2Config(srv.URL))

	out, err := runCLI(t, dir, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored credentials")

	out, err = runCLI(t, dir, "auth", "login", "-q")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, int32(1), exchanges.Load())

	out, err = runCLI(t, dir, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "svc")
	assert.Contains(t, out, "oauth2")
	assert.Contains(t, out, "Authenticated")

	// the stored token is reused by a new process
	out, err = runCLI(t, dir, "get", "/me")
	require.NoError(t, err)
	assert.JSONEq(t, `{"login":"ada"}`, out)
	assert.Equal(t, int32(1), exchanges.Load())

	out, err = runCLI(t, dir, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out from profile svc")

	out, err = runCLI(t, dir, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored credentials")
}

func TestAuthLogoutAll(t *testing.T) {
	srv, _ := newProvider(t)
	dir := writeTestConfig(t, oauth2Config(srv.URL))

	_, err := runCLI(t, dir, "auth", "login")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "auth", "logout", "--all", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 stored token(s).")
}

func TestAuthRefresh_NotOAuth2(t *testing.T) {
	dir := writeTestConfig(t, publicConfig("http://127.0.0.1:1"))
	_, err := runCLI(t, dir, "auth", "refresh")
	assert.ErrorContains(t, err, "not an OAuth2 profile")
}

func TestFormatTokenStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rec  tokenstore.Record
		want string
	}{
		{"valid", tokenstore.Record{AccessToken: "a", Expiry: now.Add(time.Hour)}, "Authenticated"},
		{"no expiry", tokenstore.Record{AccessToken: "a"}, "Authenticated"},
		{"expired", tokenstore.Record{AccessToken: "a", Expiry: now.Add(-time.Second)}, "Expired"},
		{"refresh only", tokenstore.Record{RefreshToken: "r"}, "Refresh only"},
		{"empty", tokenstore.Record{}, "Not authenticated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, formatTokenStatus(&tt.rec, now), tt.want)
		})
	}
}

func TestFormatExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", formatExpiry(time.Time{}, now))
	assert.Equal(t, "in 30s", formatExpiry(now.Add(30*time.Second), now))
	assert.Equal(t, "in 59m", formatExpiry(now.Add(59*time.Minute), now))
	assert.Equal(t, "2h5m ago", formatExpiry(now.Add(-2*time.Hour-5*time.Minute), now))
	assert.Equal(t, "in 3d", formatExpiry(now.Add(72*time.Hour), now))
}
