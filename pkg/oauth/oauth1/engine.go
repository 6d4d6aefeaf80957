package oauth1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/courier/pkg/instrumentation"
	"github.com/giantswarm/courier/pkg/oauth"
	"github.com/giantswarm/courier/pkg/tokenstore"
)

// maxResponseSize caps token endpoint responses.
const maxResponseSize = 1 << 20

// Engine runs the three-legged OAuth1 flow for one Settings instance and
// signs requests with the resulting access token.
type Engine struct {
	settings    *Settings
	signer      *Signer
	httpClient  *http.Client
	coordinator *oauth.Coordinator
	store       tokenstore.Store
	profile     string
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	tracer      trace.Tracer

	// loaded is guarded by the settings lock.
	loaded bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient sets the client used for the token legs.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = c
	}
}

// WithCoordinator sets the coordinator running the interactive step.
func WithCoordinator(c *oauth.Coordinator) Option {
	return func(e *Engine) {
		e.coordinator = c
	}
}

// WithStore persists the access token under the given profile name.
func WithStore(store tokenstore.Store, profile string) Option {
	return func(e *Engine) {
		e.store = store
		e.profile = profile
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithInstrumentation enables metrics and tracing.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(e *Engine) {
		if inst == nil {
			return
		}
		e.metrics = inst.Metrics()
		e.tracer = inst.Tracer("oauth1")
	}
}

// NewEngine returns an engine for s. The settings must outlive the engine;
// their credential is updated in place.
func NewEngine(s *Settings, opts ...Option) (*Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		settings: s,
		signer:   NewSigner(s),
		logger:   slog.Default(),
		tracer:   instrumentation.Noop().Tracer("oauth1"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.httpClient == nil {
		e.httpClient = cleanhttp.DefaultPooledClient()
	}
	if e.coordinator == nil {
		e.coordinator = oauth.NewCoordinator(oauth.WithCoordinatorLogger(e.logger))
	}

	return e, nil
}

// Signer returns the signer used for outgoing requests.
func (e *Engine) Signer() *Signer {
	return e.signer
}

// Credential returns a snapshot of the current credential. It waits for a
// running flow to finish, so it must not be called while holding the
// settings lock (from OnAccessTokenObtained, for example).
func (e *Engine) Credential() Credential {
	release, _ := e.settings.Acquire(context.Background())
	defer release()
	return e.settings.Credential
}

func (e *Engine) storeKey() string {
	return tokenstore.Key(e.settings.AccessTokenURL, e.settings.ClientID)
}

// EnsureAccessToken returns the access token and secret, running the
// three-legged flow when none is held. Concurrent callers wait for a single
// flow.
func (e *Engine) EnsureAccessToken(ctx context.Context) (token, secret string, err error) {
	err = e.coordinator.Gate(ctx, &e.settings.Settings, func(ctx context.Context) error {
		e.loadLocked()

		cred := &e.settings.Credential
		if cred.State != StateAccessTokenObtained || cred.Token == "" {
			if err := e.authorizeLocked(ctx); err != nil {
				return err
			}
		}
		token, secret = cred.Token, cred.TokenSecret
		return nil
	})
	return token, secret, err
}

// loadLocked restores a persisted access token once.
func (e *Engine) loadLocked() {
	if e.loaded || e.store == nil {
		return
	}
	e.loaded = true

	if e.settings.Credential.State == StateAccessTokenObtained {
		return
	}
	rec, err := e.store.Get(e.storeKey())
	if err != nil {
		e.logger.Warn("Failed to load stored OAuth1 token", "endpoint", e.settings.AccessTokenURL, "error", err)
		return
	}
	if rec == nil || rec.AccessToken == "" {
		return
	}
	e.settings.Credential = Credential{
		Token:       rec.AccessToken,
		TokenSecret: rec.TokenSecret,
		State:       StateAccessTokenObtained,
	}
	e.logger.Debug("Restored OAuth1 access token", "endpoint", e.settings.AccessTokenURL)
}

func (e *Engine) authorizeLocked(ctx context.Context) error {
	cred := &e.settings.Credential
	*cred = Credential{}

	err := e.runFlow(ctx)
	if err != nil {
		*cred = Credential{}
		return err
	}
	return nil
}

func (e *Engine) runFlow(ctx context.Context) error {
	s := e.settings
	cred := &s.Credential

	// The request token leg runs inside the URL builder so that the
	// receiver's actual redirect becomes oauth_callback.
	cb, err := e.coordinator.Authorize(ctx, &s.Settings, func(redirect string) (string, error) {
		if err := e.requestToken(ctx, redirect); err != nil {
			return "", err
		}
		vars := map[string]string{"RequestToken": cred.Token}
		if redirect != "" {
			vars["RedirectURL"] = redirect
		}
		return s.AuthorizationURL(vars, []oauth.Param{{Key: "oauth_token", Value: cred.Token}})
	})
	if err != nil {
		return err
	}

	if returned := cb.Values["oauth_token"]; returned != "" && returned != cred.Token {
		e.logger.Warn("Callback token differs from request token", "endpoint", s.TokenURL)
	}

	cred.Verifier = cb.Values["oauth_verifier"]
	if cred.Verifier == "" && s.CheckVerifier {
		return oauth.ErrMissingVerifier
	}
	cred.State = StateVerifierObtained

	return e.accessToken(ctx)
}

// requestToken performs the first leg.
func (e *Engine) requestToken(ctx context.Context, redirect string) error {
	callback := redirect
	if callback == "" || callback == oauth.OutOfBandRedirectURL {
		callback = "oob"
	}

	values, err := e.tokenRequest(ctx, oauth.LegRequestToken, e.settings.requestTokenMethod(), e.settings.TokenURL,
		"", "", Param{Key: "oauth_callback", Value: callback})
	if err != nil {
		return err
	}

	token, secret := values.Get("oauth_token"), values.Get("oauth_token_secret")
	if token == "" {
		return &oauth.ExchangeError{Leg: oauth.LegRequestToken, Err: errors.New("response carries no oauth_token")}
	}

	e.settings.Credential = Credential{
		Token:       token,
		TokenSecret: secret,
		State:       StateRequestTokenObtained,
	}
	return nil
}

// accessToken performs the third leg, exchanging the request token and
// verifier for the access token.
func (e *Engine) accessToken(ctx context.Context) error {
	s := e.settings
	cred := &s.Credential

	var extra []Param
	if cred.Verifier != "" {
		extra = append(extra, Param{Key: "oauth_verifier", Value: cred.Verifier})
	}

	values, err := e.tokenRequest(ctx, oauth.LegAccessToken, s.accessTokenMethod(), s.AccessTokenURL,
		cred.Token, cred.TokenSecret, extra...)
	if err != nil {
		return err
	}

	token := values.Get("oauth_token")
	if token == "" {
		return &oauth.ExchangeError{Leg: oauth.LegAccessToken, Err: errors.New("response carries no oauth_token")}
	}

	*cred = Credential{
		Token:       token,
		TokenSecret: values.Get("oauth_token_secret"),
		State:       StateAccessTokenObtained,
	}

	if s.OnAccessTokenObtained != nil {
		raw := make(map[string]string, len(values))
		for k := range values {
			raw[k] = values.Get(k)
		}
		s.OnAccessTokenObtained(raw)
	}

	e.persist()
	return nil
}

func (e *Engine) persist() {
	if e.store == nil {
		return
	}
	rec := &tokenstore.Record{
		Protocol:    tokenstore.ProtocolOAuth1,
		Profile:     e.profile,
		AccessToken: e.settings.Credential.Token,
		TokenSecret: e.settings.Credential.TokenSecret,
		Endpoint:    e.settings.AccessTokenURL,
		ClientID:    e.settings.ClientID,
		CreatedAt:   time.Now(),
	}
	if err := e.store.Save(e.storeKey(), rec); err != nil {
		e.logger.Warn("Failed to persist OAuth1 token", "endpoint", e.settings.AccessTokenURL, "error", err)
	}
}

// tokenRequest sends a signed request to a token endpoint and parses the
// form-encoded response. Providers are inconsistent about the response
// content type, so the body is parsed as a query string regardless.
func (e *Engine) tokenRequest(ctx context.Context, leg oauth.Leg, method, endpoint, token, secret string, extra ...Param) (values url.Values, err error) {
	ctx, span := e.tracer.Start(ctx, "oauth1.exchange",
		trace.WithAttributes(
			attribute.String(instrumentation.AttrProtocol, "oauth1"),
			attribute.String(instrumentation.AttrLeg, string(leg)),
			attribute.String(instrumentation.AttrClientID, e.settings.ClientID),
		))
	defer func() {
		e.metrics.RecordTokenExchange(ctx, "oauth1", string(leg), err)
		if err != nil {
			instrumentation.RecordError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, &oauth.ExchangeError{Leg: leg, Err: err}
	}
	if err := e.signer.Sign(req, token, secret, extra...); err != nil {
		return nil, err
	}
	e.metrics.RecordSignature(ctx, string(e.settings.signatureMethod()))

	e.logger.Debug("OAuth1 token request", "leg", leg, "endpoint", endpoint)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &oauth.ExchangeError{Leg: leg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &oauth.ExchangeError{Leg: leg, StatusCode: resp.StatusCode, Err: err}
	}

	values, parseErr := url.ParseQuery(string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		exchangeErr := &oauth.ExchangeError{Leg: leg, StatusCode: resp.StatusCode, Body: string(body)}
		if parseErr == nil && values.Get("oauth_problem") != "" {
			exchangeErr.Err = &oauth.ProviderError{
				Code:        values.Get("oauth_problem"),
				Description: values.Get("oauth_problem_advice"),
			}
		}
		return nil, exchangeErr
	}
	if parseErr != nil {
		return nil, &oauth.ExchangeError{Leg: leg, StatusCode: resp.StatusCode, Body: string(body),
			Err: fmt.Errorf("parsing response: %w", parseErr)}
	}

	return values, nil
}

// Logout forgets the access token and removes it from the store.
func (e *Engine) Logout(ctx context.Context) error {
	return e.coordinator.Gate(ctx, &e.settings.Settings, func(context.Context) error {
		e.settings.Credential = Credential{}
		e.loaded = true
		if e.store != nil {
			if err := e.store.Delete(e.storeKey()); err != nil {
				return fmt.Errorf("oauth1: removing stored token: %w", err)
			}
		}
		return nil
	})
}
