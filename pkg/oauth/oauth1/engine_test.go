package oauth1

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/courier/pkg/oauth"
	"github.com/giantswarm/courier/pkg/tokenstore"
)

const (
	consumerKey    = "consumer"
	consumerSecret = "consumer-secret"
)

type provider struct {
	srv *httptest.Server

	omitVerifier   atomic.Bool
	rejectConsumer atomic.Bool

	requestTokenCalls atomic.Int32
	accessTokenCalls  atomic.Int32

	mu       sync.Mutex
	callback string
}

func newProvider(t *testing.T) *provider {
	p := &provider{}
	mux := http.NewServeMux()

	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		p.requestTokenCalls.Add(1)
		if p.rejectConsumer.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, "oauth_problem=consumer_key_rejected&oauth_problem_advice=unknown+consumer")
			return
		}
		params, ok := verify(r, "")
		if !ok {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		p.mu.Lock()
		p.callback = params["oauth_callback"]
		p.mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "oauth_token=req&oauth_token_secret=req-secret&oauth_callback_confirmed=true")
	})

	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("oauth_token") != "req" {
			http.Error(w, "unknown token", http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		target := p.callback + "?oauth_token=req"
		p.mu.Unlock()
		if !p.omitVerifier.Load() {
			target += "&oauth_verifier=ver"
		}
		http.Redirect(w, r, target, http.StatusFound)
	})

	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		p.accessTokenCalls.Add(1)
		params, ok := verify(r, "req-secret")
		if !ok || params["oauth_token"] != "req" {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		if !p.omitVerifier.Load() && params["oauth_verifier"] != "ver" {
			http.Error(w, "oauth_problem=verifier_invalid", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "oauth_token=acc&oauth_token_secret=acc-secret&user_id=42")
	})

	mux.HandleFunc("/resource", func(w http.ResponseWriter, r *http.Request) {
		params, ok := verify(r, "acc-secret")
		if !ok || params["oauth_token"] != "acc" {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "ok "+r.URL.Query().Get("x"))
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

// verify recomputes the HMAC-SHA1 signature of r the way a provider would.
func verify(r *http.Request, tokenSecret string) (map[string]string, bool) {
	header, ok := strings.CutPrefix(r.Header.Get("Authorization"), "OAuth ")
	if !ok {
		return nil, false
	}

	oauthParams := map[string]string{}
	var params []Param
	for _, part := range strings.Split(header, ", ") {
		k, v, _ := strings.Cut(part, "=")
		key, _ := url.PathUnescape(k)
		value, _ := url.PathUnescape(strings.Trim(v, `"`))
		if key == "realm" {
			continue
		}
		oauthParams[key] = value
		if key != "oauth_signature" {
			params = append(params, Param{Key: key, Value: value})
		}
	}
	for k, vs := range r.URL.Query() {
		for _, v := range vs {
			params = append(params, Param{Key: k, Value: v})
		}
	}

	u := &url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path}
	key := SigningKey(consumerSecret, tokenSecret)
	expected := ComputeHash(hmac.New(sha1.New, []byte(key)), BaseString(r.Method, u, params))
	return oauthParams, expected == oauthParams["oauth_signature"]
}

func (p *provider) settings() *Settings {
	return &Settings{
		Settings: oauth.Settings{
			ClientID:         consumerKey,
			ClientSecret:     consumerSecret,
			TokenURL:         p.srv.URL + "/request_token",
			AuthorizationURI: p.srv.URL + "/authorize",
			AuthorizeMode:    oauth.AuthorizeModeTestPassThrough,
		},
		AccessTokenURL: p.srv.URL + "/access_token",
		CheckVerifier:  true,
	}
}

func (p *provider) engine(t *testing.T, s *Settings, opts ...Option) *Engine {
	coordinator := oauth.NewCoordinator(
		oauth.WithReceiver(oauth.AuthorizeModeTestPassThrough, &oauth.PassThroughReceiver{Client: p.srv.Client()}))
	opts = append([]Option{WithHTTPClient(p.srv.Client()), WithCoordinator(coordinator)}, opts...)
	e, err := NewEngine(s, opts...)
	require.NoError(t, err)
	return e
}

func TestEngine_ThreeLeggedFlow(t *testing.T) {
	p := newProvider(t)
	s := p.settings()

	var hook map[string]string
	s.OnAccessTokenObtained = func(values map[string]string) { hook = values }

	e := p.engine(t, s)

	token, secret, err := e.EnsureAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc", token)
	assert.Equal(t, "acc-secret", secret)
	assert.Equal(t, StateAccessTokenObtained, e.Credential().State)
	assert.Equal(t, "42", hook["user_id"])

	p.mu.Lock()
	assert.Equal(t, oauth.DefaultPassThroughRedirectURL, p.callback)
	p.mu.Unlock()

	// signed resource request through the transport
	client := &http.Client{Transport: e.Wrap(p.srv.Client().Transport)}
	resp, err := client.Get(p.srv.URL + "/resource?x=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok 1", string(body))

	assert.Equal(t, int32(1), p.requestTokenCalls.Load())
	assert.Equal(t, int32(1), p.accessTokenCalls.Load())
}

func TestEngine_ConcurrentCallersShareOneFlow(t *testing.T) {
	p := newProvider(t)
	e := p.engine(t, p.settings())

	var g errgroup.Group
	tokens := make([]string, 8)
	for i := range tokens {
		g.Go(func() error {
			token, _, err := e.EnsureAccessToken(context.Background())
			tokens[i] = token
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, token := range tokens {
		assert.Equal(t, "acc", token)
	}
	assert.Equal(t, int32(1), p.requestTokenCalls.Load())
	assert.Equal(t, int32(1), p.accessTokenCalls.Load())
}

func TestEngine_MissingVerifier(t *testing.T) {
	p := newProvider(t)
	p.omitVerifier.Store(true)

	t.Run("checked", func(t *testing.T) {
		e := p.engine(t, p.settings())
		_, _, err := e.EnsureAccessToken(context.Background())
		assert.ErrorIs(t, err, oauth.ErrMissingVerifier)
		assert.Equal(t, StateNoToken, e.Credential().State)
		assert.Empty(t, e.Credential().Token)
	})

	t.Run("tolerated", func(t *testing.T) {
		s := p.settings()
		s.CheckVerifier = false
		e := p.engine(t, s)
		token, _, err := e.EnsureAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "acc", token)
	})
}

func TestEngine_ProviderProblem(t *testing.T) {
	p := newProvider(t)
	p.rejectConsumer.Store(true)
	e := p.engine(t, p.settings())

	_, _, err := e.EnsureAccessToken(context.Background())
	require.Error(t, err)

	var exchangeErr *oauth.ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, oauth.LegRequestToken, exchangeErr.Leg)
	assert.Equal(t, http.StatusUnauthorized, exchangeErr.StatusCode)

	var providerErr *oauth.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "consumer_key_rejected", providerErr.Code)
	assert.Equal(t, "unknown consumer", providerErr.Description)

	assert.Equal(t, StateNoToken, e.Credential().State)
	assert.Zero(t, p.accessTokenCalls.Load())
}

func TestEngine_NetworkFailureNamesLeg(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	tests := []struct {
		name      string
		configure func(s *Settings)
		wantLeg   oauth.Leg
	}{
		{
			name:      "authorize",
			configure: func(s *Settings) { s.AuthorizationURI = down.URL + "/authorize" },
			wantLeg:   oauth.LegAuthorize,
		},
		{
			name:      "access token",
			configure: func(s *Settings) { s.AccessTokenURL = down.URL + "/access_token" },
			wantLeg:   oauth.LegAccessToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t)
			s := p.settings()
			tt.configure(s)
			e := p.engine(t, s)

			_, _, err := e.EnsureAccessToken(context.Background())

			var exchangeErr *oauth.ExchangeError
			require.ErrorAs(t, err, &exchangeErr)
			assert.Equal(t, tt.wantLeg, exchangeErr.Leg)
			assert.Zero(t, exchangeErr.StatusCode)
			assert.Equal(t, StateNoToken, e.Credential().State)
			assert.Equal(t, int32(1), p.requestTokenCalls.Load())
			assert.Zero(t, p.accessTokenCalls.Load())
		})
	}
}

func TestEngine_StoreAndLogout(t *testing.T) {
	p := newProvider(t)
	store := tokenstore.NewMemory()

	first := p.engine(t, p.settings(), WithStore(store, "photos"))
	_, _, err := first.EnsureAccessToken(context.Background())
	require.NoError(t, err)

	rec, err := store.Get(tokenstore.Key(p.srv.URL+"/access_token", consumerKey))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, tokenstore.ProtocolOAuth1, rec.Protocol)
	assert.Equal(t, "photos", rec.Profile)
	assert.Equal(t, "acc-secret", rec.TokenSecret)

	// a fresh engine restores the token without another flow
	second := p.engine(t, p.settings(), WithStore(store, "photos"))
	token, secret, err := second.EnsureAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc", token)
	assert.Equal(t, "acc-secret", secret)
	assert.Equal(t, int32(1), p.requestTokenCalls.Load())

	require.NoError(t, second.Logout(context.Background()))
	assert.Equal(t, StateNoToken, second.Credential().State)
	rec, err = store.Get(tokenstore.Key(p.srv.URL+"/access_token", consumerKey))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNewEngine_Validates(t *testing.T) {
	_, err := NewEngine(&Settings{})
	assert.Error(t, err)
}
