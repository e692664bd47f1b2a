package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/gopaywall/internal/cli"
	"github.com/TimurManjosov/gopaywall/internal/snapshot"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a campaign file",
	Long: `Validate parses the campaign file and checks every trigger, rule and
paywall reference. A valid campaign prints its triggers; a broken one exits
non-zero with the first validation failure.

Examples:
  paywallctl validate
  paywallctl validate --campaign staging.yaml --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := snapshot.LoadFile(campaignFile)
		if err != nil {
			return fmt.Errorf("campaign invalid: %w", err)
		}

		if quiet {
			return nil
		}
		fmt.Printf("campaign ok: %d triggers, %d paywalls, etag=%s\n",
			len(snap.Triggers), len(snap.Paywalls), snap.ETag)
		return cli.PrintTriggers(os.Stdout, snap.Triggers, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
