package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/courier/pkg/client"
	"github.com/giantswarm/courier/pkg/oauth"
	"github.com/giantswarm/courier/pkg/oauth/oauth2"
)

func TestSetVersion(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "courier", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)

	for _, name := range []string{"config-path", "profile", "log-level", "log-format", "quiet"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "courier version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())

	assert.Equal(t, "courier version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, expected := range []string{"version", "get", "send", "auth"} {
		assert.True(t, found[expected], "missing subcommand %s", expected)
	}

	authSub := map[string]bool{}
	for _, c := range authCmd.Commands() {
		authSub[c.Name()] = true
	}
	for _, expected := range []string{"login", "logout", "status", "refresh"} {
		assert.True(t, authSub[expected], "missing auth subcommand %s", expected)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), ExitCodeError},
		{"unauthorized response", &client.StatusError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}, ExitCodeAuthRequired},
		{"not found response", &client.StatusError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}, ExitCodeError},
		{"no refresh token", fmt.Errorf("failed to refresh token: %w", oauth2.ErrNoRefreshToken), ExitCodeAuthRequired},
		{"exchange failure", &oauth.ExchangeError{Leg: oauth.LegAuthorizationCode, StatusCode: 400}, ExitCodeAuthFailed},
		{"callback timeout", fmt.Errorf("login: %w", oauth.ErrAuthorizationTimeout), ExitCodeAuthFailed},
		{"state mismatch", oauth.ErrStateMismatch, ExitCodeAuthFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

// runCLI executes the root command with args against the configuration in
// configDir and returns its standard output.
func runCLI(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()

	for _, name := range []string{"COURIER_CONFIG_DIR", "COURIER_PROFILE", "COURIER_LOG_LEVEL", "COURIER_TOKEN_DIR", "COURIER_CLIENT_SECRET"} {
		t.Setenv(name, "")
	}
	configPath, profileArg, logLevel, logFormat, quiet = "", "", "", "", false
	requestOutput, requestHeaders, requestData, requestContentType = outputJSON, nil, "", ""
	logoutAll, logoutYes = false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config-path", configDir, "--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}
