package oauth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{"redirect URL", "http://localhost/cb?code=abc&state=xyz", map[string]string{"code": "abc", "state": "xyz"}},
		{"query string", "oauth_token=t&oauth_verifier=v", map[string]string{"oauth_token": "t", "oauth_verifier": "v"}},
		{"window title", "Success code=4/abc", map[string]string{"code": "4/abc"}},
		{"bare code", "  4/xyz  ", map[string]string{"code": "4/xyz", "oauth_verifier": "4/xyz"}},
		{"fragment ignored", "http://localhost/cb?code=abc#frag", map[string]string{"code": "abc"}},
		{"empty", "", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCallback(tt.in))
		})
	}
}

func listenForTest(t *testing.T) *Listener {
	t.Helper()
	l, err := Listen("http://localhost:8080/")
	if err != nil {
		// 8080 is taken, fall back to a free port
		l, err = Listen("http://localhost:0/")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestListener(t *testing.T) {
	l := listenForTest(t)
	assert.True(t, strings.HasPrefix(l.RedirectURL(), "http://localhost:"))
	assert.NotContains(t, l.RedirectURL(), ":0/")

	resp, err := http.Get(l.RedirectURL() + "?name=dapplo")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	values, err := l.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "dapplo"}, values)

	second, err := http.Get(l.RedirectURL() + "?name=again")
	if err == nil {
		assert.Equal(t, http.StatusBadRequest, second.StatusCode)
		_ = second.Body.Close()
	}
}

func TestListener_WaitCancelled(t *testing.T) {
	l := listenForTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListen_RejectsHTTPS(t *testing.T) {
	_, err := Listen("https://localhost:0/")
	assert.Error(t, err)
}

func TestLocalhostReceiver(t *testing.T) {
	var out bytes.Buffer
	opened := make(chan string, 1)
	r := &LocalhostReceiver{
		Out: &out,
		Open: func(u string) error {
			opened <- u
			return nil
		},
	}

	req := &AuthorizationRequest{
		Settings: &Settings{RedirectURL: "http://localhost:0/callback"},
		BuildURL: func(redirect string) (string, error) {
			return redirect + "?code=from-browser&state=s1", nil
		},
	}

	go func() {
		// the "browser" follows the authorization URL straight back
		u := <-opened
		resp, err := http.Get(u)
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	values, err := r.ReceiveCode(context.Background(), AuthorizeModeLocalhostServer, req)
	require.NoError(t, err)
	assert.Equal(t, "from-browser", values["code"])
	assert.Contains(t, req.RedirectURL(), "/callback")
	assert.Empty(t, out.String(), "URL is only printed when the browser cannot be opened")
}

func TestOutOfBandReceiver(t *testing.T) {
	t.Run("prints the URL and parses pasted input", func(t *testing.T) {
		var out bytes.Buffer
		r := &OutOfBandReceiver{
			Out:    &out,
			Prompt: StdinPrompt(strings.NewReader("http://localhost/?code=pasted&state=s\n"), &out),
		}
		req := &AuthorizationRequest{
			Settings: &Settings{},
			BuildURL: func(redirect string) (string, error) {
				return "https://provider.example.com/auth?redirect_uri=" + redirect, nil
			},
		}

		values, err := r.ReceiveCode(context.Background(), AuthorizeModeOutOfBand, req)
		require.NoError(t, err)
		assert.Equal(t, "pasted", values["code"])
		assert.Equal(t, OutOfBandRedirectURL, req.RedirectURL())
		assert.Contains(t, out.String(), "https://provider.example.com/auth")
	})

	t.Run("auto mode opens the browser", func(t *testing.T) {
		var out bytes.Buffer
		var opened string
		r := &OutOfBandReceiver{
			Out:    &out,
			Open:   func(u string) error { opened = u; return nil },
			Prompt: func(context.Context, string) (string, error) { return "code-123", nil },
		}
		req := &AuthorizationRequest{
			Settings: &Settings{RedirectURL: "oob"},
			BuildURL: func(string) (string, error) { return "https://provider.example.com/auth", nil },
		}

		values, err := r.ReceiveCode(context.Background(), AuthorizeModeOutOfBandAuto, req)
		require.NoError(t, err)
		assert.Equal(t, "code-123", values["code"])
		assert.Equal(t, "https://provider.example.com/auth", opened)
		assert.NotContains(t, out.String(), "https://provider.example.com/auth")
	})

	t.Run("empty input", func(t *testing.T) {
		r := &OutOfBandReceiver{
			Out:    io.Discard,
			Prompt: func(context.Context, string) (string, error) { return "", nil },
		}
		req := &AuthorizationRequest{
			Settings: &Settings{},
			BuildURL: func(string) (string, error) { return "https://p/", nil },
		}
		_, err := r.ReceiveCode(context.Background(), AuthorizeModeOutOfBand, req)
		assert.Error(t, err)
	})
}

func TestPassThroughReceiver(t *testing.T) {
	redirect := "http://127.0.0.1:1/callback"
	var provider *httptest.Server
	provider = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authorize":
			http.Redirect(w, r, provider.URL+"/consent?state="+r.URL.Query().Get("state"), http.StatusFound)
		case "/consent":
			http.Redirect(w, r, fmt.Sprintf("%s?code=granted&state=%s", redirect, r.URL.Query().Get("state")), http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer provider.Close()

	req := &AuthorizationRequest{
		Settings: &Settings{RedirectURL: redirect},
		BuildURL: func(string) (string, error) { return provider.URL + "/authorize?state=s42", nil },
	}

	values, err := (&PassThroughReceiver{Client: provider.Client()}).ReceiveCode(context.Background(), AuthorizeModeTestPassThrough, req)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"code": "granted", "state": "s42"}, values)

	t.Run("provider without redirect", func(t *testing.T) {
		req := &AuthorizationRequest{
			Settings: &Settings{RedirectURL: redirect},
			BuildURL: func(string) (string, error) { return provider.URL + "/missing", nil },
		}
		_, err := (&PassThroughReceiver{}).ReceiveCode(context.Background(), AuthorizeModeTestPassThrough, req)

		var exchangeErr *ExchangeError
		require.ErrorAs(t, err, &exchangeErr)
		assert.Equal(t, LegAuthorize, exchangeErr.Leg)
		assert.Equal(t, http.StatusNotFound, exchangeErr.StatusCode)
	})

	t.Run("unreachable authorization endpoint", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()

		req := &AuthorizationRequest{
			Settings: &Settings{RedirectURL: redirect},
			BuildURL: func(string) (string, error) { return down.URL + "/authorize", nil },
		}
		_, err := (&PassThroughReceiver{}).ReceiveCode(context.Background(), AuthorizeModeTestPassThrough, req)

		var exchangeErr *ExchangeError
		require.ErrorAs(t, err, &exchangeErr)
		assert.Equal(t, LegAuthorize, exchangeErr.Leg)
		assert.Zero(t, exchangeErr.StatusCode)
	})
}
