package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/gopaywall/internal/assign"
	"github.com/TimurManjosov/gopaywall/internal/cli"
	"github.com/TimurManjosov/gopaywall/internal/rules"
	"github.com/TimurManjosov/gopaywall/internal/snapshot"
	"github.com/TimurManjosov/gopaywall/internal/store"
	"github.com/TimurManjosov/gopaywall/internal/trigger"
)

var (
	evalParams []string
	evalUser   []string
	evalDevice []string
	evalSeed   int64
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <event>",
	Short: "Evaluate a tracked event against the campaign",
	Long: `Evaluate runs the trigger engine for one event against the campaign file
and prints the outcome, without touching any stored assignments.

With --seed the variant draw is deterministic, so the same invocation always
resolves the same variant.

Examples:
  paywallctl evaluate open
  paywallctl evaluate open --param tier=free --user plan=none
  paywallctl evaluate open --seed 7 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventName := args[0]

		snap, err := snapshot.LoadFile(campaignFile)
		if err != nil {
			return fmt.Errorf("campaign invalid: %w", err)
		}

		params, err := parseAttrs(evalParams)
		if err != nil {
			return fmt.Errorf("invalid --param: %w", err)
		}
		user, err := parseAttrs(evalUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		device, err := parseAttrs(evalDevice)
		if err != nil {
			return fmt.Errorf("invalid --device: %w", err)
		}

		var draw assign.Draw
		if cmd.Flags().Changed("seed") {
			rng := rand.New(rand.NewPCG(uint64(evalSeed), uint64(evalSeed)))
			draw = rng.IntN
		}
		engine := trigger.New(draw, zerolog.Nop())

		event := rules.NewEvent(eventName, params)
		outcome, err := engine.Outcome(context.Background(), event, snap.Triggers, store.NewMemoryStore(), user, device)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		if quiet {
			return nil
		}
		return cli.PrintEvaluation(os.Stdout, cli.NewEvaluation(eventName, outcome.Result), cli.OutputFormat(format))
	},
}

// parseAttrs turns repeated key=value flags into an attribute map. Values
// that parse as JSON scalars keep their type; everything else is a string.
func parseAttrs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		var typed any
		if err := json.Unmarshal([]byte(value), &typed); err == nil {
			attrs[key] = typed
		} else {
			attrs[key] = value
		}
	}
	return attrs, nil
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringArrayVar(&evalParams, "param", nil, "Event parameter as key=value (repeatable)")
	evaluateCmd.Flags().StringArrayVar(&evalUser, "user", nil, "User attribute as key=value (repeatable)")
	evaluateCmd.Flags().StringArrayVar(&evalDevice, "device", nil, "Device attribute as key=value (repeatable)")
	evaluateCmd.Flags().Int64Var(&evalSeed, "seed", 0, "Seed for a deterministic variant draw")
}
