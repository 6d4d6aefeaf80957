package oauth2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/courier/pkg/instrumentation"
	"github.com/giantswarm/courier/pkg/logging"
	"github.com/giantswarm/courier/pkg/oauth"
	"github.com/giantswarm/courier/pkg/tokenstore"
)

// ErrNoRefreshToken is returned by RefreshAccessToken when no refresh token
// is held.
var ErrNoRefreshToken = errors.New("oauth2: no refresh token")

// Manager owns the token lifecycle of one Settings instance.
type Manager struct {
	settings    *Settings
	httpClient  *http.Client
	coordinator *oauth.Coordinator
	discoverer  *oauth.Discoverer
	store       tokenstore.Store
	profile     string
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	tracer      trace.Tracer

	// loaded is guarded by the settings lock.
	loaded bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for token and discovery requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// WithCoordinator sets the coordinator running the interactive step.
func WithCoordinator(c *oauth.Coordinator) Option {
	return func(m *Manager) {
		m.coordinator = c
	}
}

// WithDiscoverer sets the metadata discoverer used for Issuer.
func WithDiscoverer(d *oauth.Discoverer) Option {
	return func(m *Manager) {
		m.discoverer = d
	}
}

// WithStore persists tokens under the given profile name.
func WithStore(store tokenstore.Store, profile string) Option {
	return func(m *Manager) {
		m.store = store
		m.profile = profile
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithInstrumentation enables metrics and tracing.
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(m *Manager) {
		if inst == nil {
			return
		}
		m.metrics = inst.Metrics()
		m.tracer = inst.Tracer("oauth2")
	}
}

// NewManager returns a manager for s. The settings must outlive the
// manager; their credential is updated in place.
func NewManager(s *Settings, opts ...Option) (*Manager, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		settings: s,
		logger:   slog.Default(),
		tracer:   instrumentation.Noop().Tracer("oauth2"),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.httpClient == nil {
		m.httpClient = cleanhttp.DefaultPooledClient()
	}
	if m.coordinator == nil {
		m.coordinator = oauth.NewCoordinator(oauth.WithCoordinatorLogger(m.logger))
	}
	if m.discoverer == nil {
		m.discoverer = oauth.NewDiscoverer(
			oauth.WithDiscoveryHTTPClient(m.httpClient),
			oauth.WithDiscoveryLogger(m.logger))
	}

	return m, nil
}

// Settings returns the managed settings.
func (m *Manager) Settings() *Settings {
	return m.settings
}

// Credential returns a snapshot of the current credential. It waits for a
// running flow to finish, so it must not be called while holding the
// settings lock (from OnAccessTokenObtained, for example).
func (m *Manager) Credential() Credential {
	release, _ := m.settings.Acquire(context.Background())
	defer release()
	return m.settings.Credential
}

// EnsureValidToken returns a valid access token. An expired or missing token
// is refreshed when a refresh token is held, otherwise the authorization-code
// flow runs. A refresh rejected with invalid_grant discards the refresh token
// and falls back to the authorization-code flow.
//
// Concurrent callers serialise on the settings lock: the first one acquires
// the token and the others observe it.
func (m *Manager) EnsureValidToken(ctx context.Context) (*Credential, error) {
	var cred Credential
	err := m.coordinator.Gate(ctx, &m.settings.Settings, func(ctx context.Context) error {
		m.loadLocked()
		if m.settings.HasValidAccessToken() {
			cred = m.settings.Credential
			return nil
		}

		if err := m.resolveEndpointsLocked(ctx); err != nil {
			return err
		}

		if m.settings.Credential.RefreshToken != "" {
			err := m.refreshLocked(ctx)
			if err == nil {
				cred = m.settings.Credential
				return nil
			}
			if !errors.Is(err, oauth.ErrInvalidGrant) {
				return err
			}
			m.logger.Info("Refresh token rejected, authorization required", "endpoint", m.settings.TokenURL)
		}

		if err := m.authorizeLocked(ctx); err != nil {
			return err
		}
		cred = m.settings.Credential
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// RefreshAccessToken runs the refresh-token grant. On invalid_grant the
// refresh token is discarded and an error matching oauth.ErrInvalidGrant is
// returned; the authorization-code flow is not started.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	return m.coordinator.Gate(ctx, &m.settings.Settings, func(ctx context.Context) error {
		m.loadLocked()
		if m.settings.Credential.RefreshToken == "" {
			return ErrNoRefreshToken
		}
		if err := m.resolveEndpointsLocked(ctx); err != nil {
			return err
		}
		return m.refreshLocked(ctx)
	})
}

// Authorize runs the authorization-code flow regardless of held tokens.
func (m *Manager) Authorize(ctx context.Context) error {
	return m.coordinator.Gate(ctx, &m.settings.Settings, func(ctx context.Context) error {
		m.loaded = true
		if err := m.resolveEndpointsLocked(ctx); err != nil {
			return err
		}
		return m.authorizeLocked(ctx)
	})
}

// InvalidateAccessToken drops the access token if it is still token. An
// empty token drops whatever is held. The refresh token is kept.
func (m *Manager) InvalidateAccessToken(ctx context.Context, token string) error {
	return m.coordinator.Gate(ctx, &m.settings.Settings, func(context.Context) error {
		cred := &m.settings.Credential
		if token != "" && cred.AccessToken != token {
			return nil
		}
		cred.AccessToken = ""
		cred.AccessTokenExpiresAt = time.Time{}
		m.persistLocked()
		m.logger.Debug("Access token invalidated", "endpoint", m.settings.TokenURL)
		return nil
	})
}

// Logout revokes the refresh token when a revocation endpoint is known,
// clears the credential and removes it from the store.
func (m *Manager) Logout(ctx context.Context) error {
	return m.coordinator.Gate(ctx, &m.settings.Settings, func(ctx context.Context) error {
		m.loadLocked()
		m.revokeLocked(ctx)

		m.settings.Credential = Credential{}
		if m.store != nil {
			if err := m.store.Delete(m.storeKey()); err != nil {
				return fmt.Errorf("oauth2: removing stored token: %w", err)
			}
		}
		return nil
	})
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	cred := &m.settings.Credential
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
	}
	if len(m.settings.Scopes) > 0 {
		form.Set("scope", strings.Join(m.settings.Scopes, " "))
	}

	err := m.exchange(ctx, oauth.LegRefreshToken, form)
	if errors.Is(err, oauth.ErrInvalidGrant) {
		cred.RefreshToken = ""
		cred.AccessToken = ""
		m.persistLocked()
		logging.Audit(m.logger, "refresh_token_discarded",
			"endpoint", m.settings.TokenURL,
			"client_id", m.settings.ClientID)
	}
	return err
}

func (m *Manager) authorizeLocked(ctx context.Context) error {
	s := m.settings

	state := s.State
	if state == "" {
		generated, err := oauth.GenerateState()
		if err != nil {
			return err
		}
		state = generated
	}

	var pkce *oauth.PKCEChallenge
	if s.UsePKCE {
		pkce = oauth.GeneratePKCE()
	}

	scope := strings.Join(s.Scopes, " ")
	cb, err := m.coordinator.Authorize(ctx, &s.Settings, func(redirect string) (string, error) {
		vars := map[string]string{"State": state, "Scope": scope}
		if redirect != "" {
			vars["RedirectURL"] = redirect
		}
		params := []oauth.Param{
			{Key: "response_type", Value: "code"},
			{Key: "client_id", Value: s.ClientID},
			{Key: "redirect_uri", Value: redirect},
			{Key: "scope", Value: scope},
			{Key: "state", Value: state},
		}
		params = append(params, pkce.Params()...)
		return s.AuthorizationURL(vars, params)
	})
	if err != nil {
		return err
	}

	if got, ok := cb.Values["state"]; ok && got != state {
		return oauth.ErrStateMismatch
	}
	code := cb.Values["code"]
	if code == "" {
		return &oauth.ExchangeError{Leg: oauth.LegAuthorize, Err: errors.New("callback carries no authorization code")}
	}
	s.Credential.AuthorizationCode = code

	form := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {s.Credential.AuthorizationCode},
	}
	// the code is single use
	s.Credential.AuthorizationCode = ""
	if cb.RedirectURL != "" {
		form.Set("redirect_uri", cb.RedirectURL)
	}
	if pkce != nil {
		form.Set("code_verifier", pkce.CodeVerifier)
	}

	return m.exchange(ctx, oauth.LegAuthorizationCode, form)
}

// resolveEndpointsLocked fills missing endpoints from the issuer metadata.
func (m *Manager) resolveEndpointsLocked(ctx context.Context) error {
	s := m.settings
	if !s.needsDiscovery() {
		return nil
	}

	metadata, err := m.discoverer.DiscoverMetadata(ctx, s.Issuer)
	if err != nil {
		return fmt.Errorf("oauth2: discovering endpoints: %w", err)
	}
	if s.TokenURL == "" {
		s.TokenURL = metadata.TokenEndpoint
	}
	if s.AuthorizationURI == "" {
		s.AuthorizationURI = metadata.AuthorizationEndpoint
	}
	if s.RevocationURL == "" {
		s.RevocationURL = metadata.RevocationEndpoint
	}
	if !s.UsePKCE && metadata.SupportsPKCE() {
		s.UsePKCE = true
	}
	return nil
}

// revokeLocked revokes the refresh token, or else the access token. Failures
// are logged and do not prevent the local logout.
func (m *Manager) revokeLocked(ctx context.Context) {
	s := m.settings
	if s.RevocationURL == "" {
		return
	}

	token, hint := s.Credential.RefreshToken, "refresh_token"
	if token == "" {
		token, hint = s.Credential.AccessToken, "access_token"
	}
	if token == "" {
		return
	}

	form := url.Values{
		"token":           {token},
		"token_type_hint": {hint},
		"client_id":       {s.ClientID},
	}
	if s.ClientSecret != "" {
		form.Set("client_secret", s.ClientSecret)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.RevocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		m.logger.Warn("Failed to build revocation request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Warn("Token revocation failed", "endpoint", s.RevocationURL, "error", err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		m.logger.Warn("Token revocation rejected", "endpoint", s.RevocationURL, "status", resp.StatusCode)
		return
	}
	logging.Audit(m.logger, "token_revoked", "endpoint", s.RevocationURL, "token_type_hint", hint)
}

func (m *Manager) storeKey() string {
	return tokenstore.Key(m.settings.storeEndpoint(), m.settings.ClientID)
}

// loadLocked restores persisted tokens once.
func (m *Manager) loadLocked() {
	if m.loaded || m.store == nil {
		return
	}
	m.loaded = true

	cred := &m.settings.Credential
	if cred.AccessToken != "" || cred.RefreshToken != "" {
		return
	}
	rec, err := m.store.Get(m.storeKey())
	if err != nil {
		m.logger.Warn("Failed to load stored OAuth2 token", "endpoint", m.settings.storeEndpoint(), "error", err)
		return
	}
	if rec == nil {
		return
	}
	tok := rec.ToOAuth2Token()
	*cred = Credential{
		AccessToken:          tok.AccessToken,
		AccessTokenExpiresAt: tok.Expiry,
		RefreshToken:         tok.RefreshToken,
		TokenType:            tok.TokenType,
	}
	m.logger.Debug("Restored OAuth2 token", "endpoint", m.settings.storeEndpoint(),
		"has_refresh_token", rec.RefreshToken != "")
}

func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	cred := m.settings.Credential
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		if err := m.store.Delete(m.storeKey()); err != nil {
			m.logger.Warn("Failed to remove stored OAuth2 token", "error", err)
		}
		return
	}
	rec := &tokenstore.Record{
		Protocol:     tokenstore.ProtocolOAuth2,
		Profile:      m.profile,
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       cred.AccessTokenExpiresAt,
		Endpoint:     m.settings.storeEndpoint(),
		ClientID:     m.settings.ClientID,
		CreatedAt:    m.settings.now(),
	}
	if err := m.store.Save(m.storeKey(), rec); err != nil {
		m.logger.Warn("Failed to persist OAuth2 token", "endpoint", m.settings.storeEndpoint(), "error", err)
	}
}
