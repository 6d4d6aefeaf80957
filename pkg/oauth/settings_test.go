package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_AuthorizationURL(t *testing.T) {
	t.Run("appends params and attributes in order", func(t *testing.T) {
		s := &Settings{
			ClientID:         "client",
			AuthorizationURI: "https://provider.example.com/authorize",
		}
		s.SetAttribute("prompt", "consent")
		s.SetAttribute("access_type", "offline")

		got, err := s.AuthorizationURL(nil, []Param{
			{Key: "response_type", Value: "code"},
			{Key: "client_id", Value: "client"},
			{Key: "redirect_uri", Value: "http://localhost:8080/"},
			{Key: "scope", Value: ""},
		})
		require.NoError(t, err)
		assert.Equal(t,
			"https://provider.example.com/authorize?response_type=code&client_id=client&redirect_uri=http%3A%2F%2Flocalhost%3A8080%2F&prompt=consent&access_type=offline",
			got)
	})

	t.Run("expands placeholders and skips templated keys", func(t *testing.T) {
		s := &Settings{
			ClientID:         "client id",
			AuthorizationURI: "https://provider.example.com/auth?client_id={{ ClientID }}&redirect_uri={{ RedirectURL }}",
		}

		got, err := s.AuthorizationURL(
			map[string]string{"RedirectURL": "http://localhost:1234/"},
			[]Param{{Key: "client_id", Value: "ignored"}, {Key: "state", Value: "xyz"}},
		)
		require.NoError(t, err)
		assert.Equal(t,
			"https://provider.example.com/auth?client_id=client+id&redirect_uri=http%3A%2F%2Flocalhost%3A1234%2F&state=xyz",
			got)
	})

	t.Run("reports unknown placeholders", func(t *testing.T) {
		s := &Settings{AuthorizationURI: "https://provider.example.com/auth?x={{ Unknown }}"}
		_, err := s.AuthorizationURL(nil, nil)
		assert.Error(t, err)
	})

	t.Run("requires an authorization URI", func(t *testing.T) {
		_, err := (&Settings{}).AuthorizationURL(nil, nil)
		assert.Error(t, err)
	})

	t.Run("replacing an attribute keeps its position", func(t *testing.T) {
		s := &Settings{AuthorizationURI: "https://p.example.com/a"}
		s.SetAttribute("a", "1")
		s.SetAttribute("b", "2")
		s.SetAttribute("a", "3")

		got, err := s.AuthorizationURL(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://p.example.com/a?a=3&b=2", got)
	})
}

func TestSettings_Lock(t *testing.T) {
	s := &Settings{}

	release, err := s.Acquire(context.Background())
	require.NoError(t, err)

	assert.False(t, lockFree(s), "lock must be exclusive")

	release()
	release() // idempotent

	assert.True(t, lockFree(s))
}

// lockFree reports whether the settings lock can be taken right away.
func lockFree(s *Settings) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	release, err := s.Acquire(ctx)
	if err != nil {
		return false
	}
	release()
	return true
}

func TestSettings_CallbackTimeout(t *testing.T) {
	assert.Equal(t, DefaultCallbackTimeout, (&Settings{}).callbackTimeout())
	assert.Equal(t, time.Second, (&Settings{CallbackTimeout: time.Second}).callbackTimeout())
}

func TestCheckAuthorizationURI(t *testing.T) {
	assert.NoError(t, CheckAuthorizationURI("https://p.example/authorize?oauth_token={{ RequestToken }}&cb={{ RedirectURL }}"))
	assert.NoError(t, CheckAuthorizationURI("https://p.example/authorize"))
	assert.EqualError(t, CheckAuthorizationURI("https://{{ Tenant }}.p.example/authorize"), "unknown template variables: Tenant")
}
