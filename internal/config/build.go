package config

import (
	"fmt"
	"time"

	"github.com/giantswarm/courier/pkg/client"
	"github.com/giantswarm/courier/pkg/oauth"
	"github.com/giantswarm/courier/pkg/oauth/oauth1"
	"github.com/giantswarm/courier/pkg/oauth/oauth2"
)

const (
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 10 * time.Second
)

// DefaultAuthorizeMode is used by profiles that do not name a mode.
const DefaultAuthorizeMode = oauth.AuthorizeModeLocalhostServer

func (p Profile) commonSettings() (oauth.Settings, error) {
	mode := DefaultAuthorizeMode
	if p.AuthorizeMode != "" {
		var err error
		if mode, err = oauth.ParseAuthorizeMode(p.AuthorizeMode); err != nil {
			return oauth.Settings{}, err
		}
	}
	return oauth.Settings{
		ClientID:             p.ClientID,
		ClientSecret:         p.ClientSecret,
		AuthorizationURI:     p.AuthorizationURI,
		TokenURL:             p.TokenURL,
		RedirectURL:          p.RedirectURL,
		AuthorizeMode:        mode,
		CallbackTimeout:      p.CallbackTimeout,
		AdditionalAttributes: p.AdditionalAttributes,
	}, nil
}

// OAuth1Settings converts an oauth1 profile.
func (p Profile) OAuth1Settings() (*oauth1.Settings, error) {
	if p.Type != ProfileTypeOAuth1 {
		return nil, fmt.Errorf("profile type is %q, not %q", p.Type, ProfileTypeOAuth1)
	}
	common, err := p.commonSettings()
	if err != nil {
		return nil, err
	}
	method, err := oauth1.ParseSignatureMethod(p.SignatureMethod)
	if err != nil {
		return nil, err
	}
	return &oauth1.Settings{
		Settings:        common,
		AccessTokenURL:  p.AccessTokenURL,
		SignatureMethod: method,
		CheckVerifier:   p.CheckVerifier,
	}, nil
}

// OAuth2Settings converts an oauth2 profile.
func (p Profile) OAuth2Settings() (*oauth2.Settings, error) {
	if p.Type != ProfileTypeOAuth2 {
		return nil, fmt.Errorf("profile type is %q, not %q", p.Type, ProfileTypeOAuth2)
	}
	common, err := p.commonSettings()
	if err != nil {
		return nil, err
	}
	return &oauth2.Settings{
		Settings:      common,
		Issuer:        p.Issuer,
		RevocationURL: p.RevocationURL,
		Scopes:        p.Scopes,
		ExpiryOffset:  p.ExpiryOffset,
		UsePKCE:       p.UsePKCE,
	}, nil
}

// ClientOptions returns the transport options of a profile.
func (p Profile) ClientOptions() []client.Option {
	var opts []client.Option
	if p.Timeout > 0 {
		opts = append(opts, client.WithTimeout(p.Timeout))
	}
	if p.Retries > 0 {
		opts = append(opts, client.WithRetries(p.Retries, retryWaitMin, retryWaitMax))
	}
	if p.RateLimit > 0 {
		burst := int(p.RateLimit)
		if burst < 1 {
			burst = 1
		}
		opts = append(opts, client.WithRateLimit(p.RateLimit, burst))
	}
	for k, v := range p.Headers {
		opts = append(opts, client.WithHeader(k, v))
	}
	return opts
}
