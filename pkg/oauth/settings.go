package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/semaphore"

	"github.com/giantswarm/courier/internal/template"
)

// DefaultCallbackTimeout bounds how long an interactive authorization waits
// for the redirect.
const DefaultCallbackTimeout = 10 * time.Minute

var uriTemplates = template.New()

// Settings carries the configuration shared by the OAuth1 and OAuth2 flows,
// and the binary lock serialising every credential mutation.
//
// Settings must not be copied after first use.
type Settings struct {
	// ClientID is the OAuth2 client ID or the OAuth1 consumer key.
	ClientID string

	// ClientSecret is the OAuth2 client secret or the OAuth1 consumer secret.
	ClientSecret string

	// AuthorizationURI is the provider page the user is sent to. It may
	// contain {{ Name }} placeholders, which are expanded with query-escaped
	// values (ClientID, RedirectURL, State and flow specific variables).
	AuthorizationURI string

	// TokenURL is the OAuth2 token endpoint or the OAuth1 request token URL.
	TokenURL string

	// RedirectURL is where the provider sends the user after authorization.
	// For the localhost receivers a port of 0 picks a free port.
	RedirectURL string

	// State is sent with the authorization request. When empty a random
	// state is generated for each authorization.
	State string

	AuthorizeMode AuthorizeMode

	// CallbackTimeout bounds the interactive step. Zero means
	// DefaultCallbackTimeout; a negative value disables the timeout.
	CallbackTimeout time.Duration

	// AdditionalAttributes are appended to the authorization URL in
	// insertion order.
	AdditionalAttributes *orderedmap.OrderedMap[string, string]

	// OnAccessTokenObtained is called with the raw token response fields each
	// time an access token is obtained. It runs while the lock is held.
	OnAccessTokenObtained func(values map[string]string)

	lockOnce sync.Once
	lock     *semaphore.Weighted
}

// SetAttribute appends (or replaces in place) an additional authorization
// URL attribute.
func (s *Settings) SetAttribute(key, value string) {
	if s.AdditionalAttributes == nil {
		s.AdditionalAttributes = orderedmap.New[string, string]()
	}
	s.AdditionalAttributes.Set(key, value)
}

// Acquire blocks until the settings lock is held or ctx is done. The
// returned release function is idempotent.
func (s *Settings) Acquire(ctx context.Context) (release func(), err error) {
	s.lockOnce.Do(func() {
		s.lock = semaphore.NewWeighted(1)
	})
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() { s.lock.Release(1) })
	}, nil
}

func (s *Settings) callbackTimeout() time.Duration {
	if s.CallbackTimeout == 0 {
		return DefaultCallbackTimeout
	}
	return s.CallbackTimeout
}

// AuthorizationURIVariables are the placeholders an AuthorizationURI may
// use. RequestToken is only set by the OAuth1 flow and Scope by OAuth2.
var AuthorizationURIVariables = []string{"ClientID", "RedirectURL", "State", "Scope", "RequestToken"}

// CheckAuthorizationURI reports placeholders AuthorizationURL cannot expand.
func CheckAuthorizationURI(uri string) error {
	return uriTemplates.Check(uri, AuthorizationURIVariables...)
}

// AuthorizationURL builds the URL the user is sent to.
//
// Placeholders in AuthorizationURI are expanded from vars merged over the
// defaults ClientID, RedirectURL and State. params are then appended unless
// the expanded URI already carries the key, followed by AdditionalAttributes.
func (s *Settings) AuthorizationURL(vars map[string]string, params []Param) (string, error) {
	if s.AuthorizationURI == "" {
		return "", fmt.Errorf("oauth: authorization URI is not configured")
	}

	defaults := map[string]string{
		"ClientID":    s.ClientID,
		"RedirectURL": s.RedirectURL,
		"State":       s.State,
	}
	expanded, err := uriTemplates.Expand(s.AuthorizationURI, template.Merge(defaults, vars), url.QueryEscape)
	if err != nil {
		return "", fmt.Errorf("oauth: expanding authorization URI: %w", err)
	}

	u, err := url.Parse(expanded)
	if err != nil {
		return "", fmt.Errorf("oauth: invalid authorization URI: %w", err)
	}

	present := u.Query()
	var extra []Param
	for _, p := range params {
		if _, ok := present[p.Key]; ok || p.Value == "" {
			continue
		}
		extra = append(extra, p)
	}
	if s.AdditionalAttributes != nil {
		for pair := s.AdditionalAttributes.Oldest(); pair != nil; pair = pair.Next() {
			extra = append(extra, Param{Key: pair.Key, Value: pair.Value})
		}
	}

	u.RawQuery = appendQuery(u.RawQuery, extra)
	return u.String(), nil
}

// appendQuery encodes params in order onto an existing raw query.
func appendQuery(rawQuery string, params []Param) string {
	var b strings.Builder
	b.WriteString(rawQuery)
	for _, p := range params {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
