package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored credentials",
	Long: `Manage the OAuth credentials of courier profiles.

Examples:
  courier auth login                   # Authorize the default profile
  courier auth login -p flickr         # Authorize a specific profile
  courier auth status                  # Show every stored credential
  courier auth refresh                 # Force an OAuth2 token refresh
  courier auth logout                  # Forget the profile's credential
  courier auth logout --all            # Clear every stored credential`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear stored credentials",
	Long: `Clear stored credentials.

OAuth2 tokens are revoked at the provider when it advertises a revocation
endpoint. The next request of the profile runs the authorization flow again.

Examples:
  courier auth logout                  # Logout from the selected profile
  courier auth logout --all            # Clear all stored tokens
  courier auth logout --all --yes      # Clear all without confirmation`,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force an OAuth2 token refresh",
	Long: `Exchange the stored refresh token for a new access token.

When the provider rejects the refresh token with invalid_grant it is
discarded and 'courier auth login' is required.`,
	RunE: runAuthRefresh,
}

// Logout-specific flags
var (
	logoutAll bool
	logoutYes bool
)

// authPrint prints output only if the --quiet flag is not set.
func authPrint(cmd *cobra.Command, format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)

	authLogoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Clear all stored tokens")
	authLogoutCmd.Flags().BoolVarP(&logoutYes, "yes", "y", false, "Skip confirmation prompt for --all")
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	if logoutAll {
		entries, err := s.store.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			authPrint(cmd, "No stored tokens to clear.\n")
			return nil
		}

		if !logoutYes {
			fmt.Fprintf(cmd.OutOrStdout(), "The following %d token(s) will be cleared:\n", len(entries))
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s (%s)\n", e.Record.Profile, e.Record.Endpoint)
			}
			ok, err := confirm("\nAre you sure you want to clear all tokens?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
		}

		if err := s.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear all tokens: %w", err)
		}
		authPrint(cmd, "Cleared %d stored token(s).\n", len(entries))
		return nil
	}

	if err := s.logout(ctx); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	authPrint(cmd, "Logged out from profile %s\n", s.name)
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	if s.oauth2 == nil {
		return fmt.Errorf("profile %q is not an OAuth2 profile", s.name)
	}

	authPrint(cmd, "Refreshing token for %s...\n", s.name)
	if err := s.oauth2.RefreshAccessToken(ctx); err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	authPrint(cmd, "Token refreshed successfully.\n")
	return nil
}
