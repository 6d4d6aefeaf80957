package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/courier/pkg/tokenstore"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored credentials",
	Long: `List every stored credential with its protocol, endpoint and expiry.

Tokens are never printed.`,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := tokenstore.New(tokenstore.Config{StorageDir: cfg.TokenDir, FileMode: true})
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored credentials. Run: courier auth login")
		return nil
	}
	printStatusTable(cmd.OutOrStdout(), entries, time.Now())
	return nil
}

func printStatusTable(w io.Writer, entries []tokenstore.Entry, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"PROFILE", "PROTOCOL", "ENDPOINT", "STATUS", "EXPIRES", "REFRESH"})
	for _, e := range entries {
		rec := e.Record
		refresh := "-"
		if rec.Protocol == tokenstore.ProtocolOAuth2 {
			refresh = text.FgYellow.Sprint("No")
			if rec.RefreshToken != "" {
				refresh = text.FgGreen.Sprint("Yes")
			}
		}
		t.AppendRow(table.Row{rec.Profile, rec.Protocol, rec.Endpoint, formatTokenStatus(&rec, now), formatExpiry(rec.Expiry, now), refresh})
	}
	t.Render()
}

// formatTokenStatus formats the state of a stored credential with colors.
func formatTokenStatus(rec *tokenstore.Record, now time.Time) string {
	switch {
	case rec.AccessToken == "" && rec.RefreshToken != "":
		return text.FgYellow.Sprint("Refresh only")
	case rec.AccessToken == "":
		return text.FgRed.Sprint("Not authenticated")
	case !rec.Expiry.IsZero() && !now.Before(rec.Expiry):
		return text.FgYellow.Sprint("Expired")
	default:
		return text.FgGreen.Sprint("Authenticated")
	}
}

// formatExpiry renders an expiry relative to now, e.g. "in 59m" or "3h ago".
func formatExpiry(expiry, now time.Time) string {
	if expiry.IsZero() {
		return "never"
	}
	d := expiry.Sub(now)
	if d >= 0 {
		return "in " + formatDuration(d)
	}
	return formatDuration(-d) + " ago"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
