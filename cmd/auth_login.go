package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/courier/pkg/oauth"
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize a profile",
	Long: `Run the authorization flow of the selected profile and store the token.

A stored token that is still valid is reused; OAuth2 profiles refresh an
expired token before falling back to the interactive flow.

Examples:
  courier auth login
  courier auth login -p github`,
	RunE: runAuthLogin,
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	// the out-of-band modes prompt on the terminal, a spinner would garble it
	interactive := s.profile.AuthorizeMode != "" && isOutOfBand(s.profile.AuthorizeMode)

	var sp *spinner.Spinner
	if !quiet && !interactive {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.Suffix = fmt.Sprintf(" Waiting for authorization of %s...", s.name)
		sp.Start()
	}

	err = s.login(ctx)

	if sp != nil {
		if err != nil {
			sp.FinalMSG = text.FgRed.Sprint("Authorization failed") + "\n"
		} else {
			sp.FinalMSG = text.FgGreen.Sprint("Authorized") + "\n"
		}
		sp.Stop()
	}
	if err != nil {
		return err
	}

	authPrint(cmd, "Logged in to profile %s\n", s.name)
	return nil
}

func isOutOfBand(mode string) bool {
	m, err := oauth.ParseAuthorizeMode(mode)
	return err == nil && (m == oauth.AuthorizeModeOutOfBand || m == oauth.AuthorizeModeOutOfBandAuto)
}
