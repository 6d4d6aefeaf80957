package cmd

import (
	"fmt"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
)

var versionVerbose bool

// newVersionCmd creates the Cobra command for displaying the application version.
func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of courier",
		Long:  `All software has versions. This is courier's.`,
		// version needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "courier version %s\n", rootCmd.Version)
			if versionVerbose {
				fmt.Fprintf(cmd.OutOrStdout(), "  revision: %s\n", versioninfo.Revision)
				fmt.Fprintf(cmd.OutOrStdout(), "  modified: %t\n", versioninfo.DirtyBuild)
				if !versioninfo.LastCommit.IsZero() {
					fmt.Fprintf(cmd.OutOrStdout(), "  commit time: %s\n", versioninfo.LastCommit.UTC().Format("2006-01-02T15:04:05Z"))
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "Show build details")
	return cmd
}
