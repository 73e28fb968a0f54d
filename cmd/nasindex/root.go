package main

import (
	"os"

	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flag values every subcommand reads,
// grounded on marmos91-dittofs's cmdutil.GlobalFlags.
type globalFlags struct {
	server string
	token  string
	output string
}

var flags globalFlags

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nasindex",
		Short: "Control-plane client for the nasindex daemon",
		Long: `nasindex talks to a running nasindexd over HTTP to start and watch
scans, manage SMB sources, and query the catalog.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.server, "server", envOr("NASINDEX_SERVER", "http://127.0.0.1:8080"), "nasindexd base URL")
	root.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("NASINDEX_TOKEN"), "bearer token for the daemon's auth guard")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "table", "output format: table or json")

	root.AddCommand(newScanCmd())
	root.AddCommand(newSourceCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newBrowseCmd())
	root.AddCommand(newDedupCmd())

	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
