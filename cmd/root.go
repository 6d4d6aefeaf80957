package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"

	"github.com/giantswarm/courier/internal/config"
	"github.com/giantswarm/courier/pkg/client"
	"github.com/giantswarm/courier/pkg/logging"
	"github.com/giantswarm/courier/pkg/oauth"
	"github.com/giantswarm/courier/pkg/oauth/oauth2"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates the service rejected the credentials or
	// none are available without user interaction.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags
var (
	configPath string
	profileArg string
	logLevel   string
	logFormat  string
	quiet      bool
)

// loaded configuration, set by PersistentPreRunE
var (
	cfg    config.Config
	cfgEnv config.Env
)

// rootCmd represents the base command for the courier application.
var rootCmd = &cobra.Command{
	Use:   "courier",
	Short: "Call HTTP APIs with OAuth1 or OAuth2 authorization",
	Long: `courier sends HTTP requests to the services described by the profiles in
its configuration file. It negotiates content types, converts bodies and
authorizes requests with OAuth1 signatures or OAuth2 bearer tokens, running the
interactive authorization flow when no usable token is stored.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfiguration()
	},
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	if rootCmd.Version == "" || rootCmd.Version == "dev" {
		rootCmd.Version = versioninfo.Short()
	}
	rootCmd.SetVersionTemplate(`{{printf "courier version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

func loadConfiguration() error {
	var err error
	cfg, cfgEnv, err = config.Load(configPath)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, cfgErr.DetailedError())
		}
		return err
	}

	levelName := cfg.LogLevel
	if logLevel != "" {
		levelName = logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	format := logging.Format(cfg.LogFormat)
	if logFormat != "" {
		format = logging.Format(logFormat)
	}
	logging.Init(level, format, os.Stderr)
	return nil
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		return ExitCodeAuthRequired
	}
	if errors.Is(err, oauth2.ErrNoRefreshToken) {
		return ExitCodeAuthRequired
	}

	var exchangeErr *oauth.ExchangeError
	var authErr *oauth.AuthorizationError
	switch {
	case errors.As(err, &exchangeErr), errors.As(err, &authErr),
		errors.Is(err, oauth.ErrAuthorizationTimeout),
		errors.Is(err, oauth.ErrMissingVerifier),
		errors.Is(err, oauth.ErrStateMismatch):
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default ~/.config/courier, env: COURIER_CONFIG_DIR)")
	rootCmd.PersistentFlags().StringVarP(&profileArg, "profile", "p", "", "Profile to use (env: COURIER_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
}
