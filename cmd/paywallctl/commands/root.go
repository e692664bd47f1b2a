package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	campaignFile string
	format       string
	quiet        bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "paywallctl",
	Short: "CLI tool for working with paywall campaign files",
	Long: `Paywallctl validates campaign files and evaluates trigger rules offline,
without a running server.

Examples:
  paywallctl validate --campaign campaign.yaml
  paywallctl evaluate open --campaign campaign.yaml
  paywallctl evaluate open --param tier=free --user plan=none --seed 7`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&campaignFile, "campaign", "campaign.yaml", "Path to the campaign YAML file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
}
