package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/giantswarm/courier/internal/config"
	"github.com/giantswarm/courier/pkg/client"
	"github.com/giantswarm/courier/pkg/instrumentation"
	"github.com/giantswarm/courier/pkg/logging"
	"github.com/giantswarm/courier/pkg/oauth"
	"github.com/giantswarm/courier/pkg/oauth/oauth1"
	"github.com/giantswarm/courier/pkg/oauth/oauth2"
	"github.com/giantswarm/courier/pkg/tokenstore"
)

// session bundles everything needed to talk to the service of one profile.
type session struct {
	name    string
	profile config.Profile
	store   *tokenstore.FileStore
	logger  *slog.Logger

	oauth1 *oauth1.Engine
	oauth2 *oauth2.Manager

	client *client.Client
}

// newSession builds the client stack of the selected profile.
func newSession(ctx context.Context) (*session, error) {
	name, profile, err := cfg.Profile(profileArg)
	if err != nil {
		return nil, err
	}

	logger := logging.ForSubsystem("courier").With("profile", name)

	inst := instrumentation.Noop()
	if cfg.Telemetry {
		if inst, err = instrumentation.New(instrumentation.Config{Enabled: true}); err != nil {
			return nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
		}
	}

	store, err := tokenstore.New(tokenstore.Config{StorageDir: cfg.TokenDir, FileMode: true, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	s := &session{name: name, profile: profile, store: store, logger: logger}

	coordinator := oauth.NewCoordinator(
		oauth.WithCoordinatorLogger(logger),
		oauth.WithCoordinatorInstrumentation(inst),
		oauth.WithReceiver(oauth.AuthorizeModeOutOfBand, outOfBandReceiver()),
		oauth.WithReceiver(oauth.AuthorizeModeOutOfBandAuto, outOfBandReceiver()),
	)

	opts := append(profile.ClientOptions(),
		client.WithLogger(logger),
		client.WithInstrumentation(inst),
		client.WithUserAgent("courier/"+GetVersion()),
	)

	switch profile.Type {
	case config.ProfileTypeOAuth1:
		settings, err := profile.OAuth1Settings()
		if err != nil {
			return nil, err
		}
		s.oauth1, err = oauth1.NewEngine(settings,
			oauth1.WithCoordinator(coordinator),
			oauth1.WithStore(store, name),
			oauth1.WithLogger(logger),
			oauth1.WithInstrumentation(inst),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithAuthorizer(s.oauth1))
	case config.ProfileTypeOAuth2:
		settings, err := profile.OAuth2Settings()
		if err != nil {
			return nil, err
		}
		s.oauth2, err = oauth2.NewManager(settings,
			oauth2.WithCoordinator(coordinator),
			oauth2.WithStore(store, name),
			oauth2.WithLogger(logger),
			oauth2.WithInstrumentation(inst),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithAuthorizer(s.oauth2))
	}

	s.client = client.New(opts...)
	return s, nil
}

// resolve joins a relative path with the profile base URL.
func (s *session) resolve(target string) (string, error) {
	if strings.Contains(target, "://") || s.profile.BaseURL == "" {
		return target, nil
	}
	base, err := url.Parse(strings.TrimSuffix(s.profile.BaseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", s.profile.BaseURL, err)
	}
	ref, err := url.Parse(strings.TrimPrefix(target, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", target, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// login obtains a token without sending a request.
func (s *session) login(ctx context.Context) error {
	switch {
	case s.oauth1 != nil:
		_, _, err := s.oauth1.EnsureAccessToken(ctx)
		return err
	case s.oauth2 != nil:
		_, err := s.oauth2.EnsureValidToken(ctx)
		return err
	default:
		return fmt.Errorf("profile %q does not use authorization", s.name)
	}
}

func (s *session) logout(ctx context.Context) error {
	switch {
	case s.oauth1 != nil:
		return s.oauth1.Logout(ctx)
	case s.oauth2 != nil:
		return s.oauth2.Logout(ctx)
	default:
		return fmt.Errorf("profile %q does not use authorization", s.name)
	}
}
