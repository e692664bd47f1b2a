// Package cli renders campaign and evaluation data for the paywallctl tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/gopaywall/internal/rules"
	"github.com/TimurManjosov/gopaywall/internal/trigger"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Evaluation is the CLI view of one trigger evaluation.
type Evaluation struct {
	Event      string                  `json:"event" yaml:"event"`
	Result     string                  `json:"result" yaml:"result"`
	Experiment *rules.Experiment       `json:"experiment,omitempty" yaml:"experiment,omitempty"`
	Unmatched  []trigger.UnmatchedRule `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
}

// NewEvaluation converts an engine result into the CLI view.
func NewEvaluation(event string, res trigger.Result) Evaluation {
	ev := Evaluation{
		Event:     event,
		Result:    string(res.Kind),
		Unmatched: res.Unmatched,
	}
	if res.Experiment.ID != "" || res.Experiment.Variant.ID != "" {
		exp := res.Experiment
		ev.Experiment = &exp
	}
	return ev
}

// PrintTriggers outputs the campaign triggers in the specified format.
func PrintTriggers(w io.Writer, triggers map[string]rules.Trigger, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string]any{"triggers": triggers})
	case FormatYAML:
		return printYAML(w, triggers)
	case FormatTable:
		return printTriggerTable(w, triggers)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintEvaluation outputs one evaluation result in the specified format.
func PrintEvaluation(w io.Writer, ev Evaluation, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, ev)
	case FormatYAML:
		return printYAML(w, ev)
	case FormatTable:
		return printEvaluationTable(w, ev)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTriggerTable(w io.Writer, triggers map[string]rules.Trigger) error {
	events := make([]string, 0, len(triggers))
	for event := range triggers {
		events = append(events, event)
	}
	sort.Strings(events)

	table := tablewriter.NewWriter(w)
	table.Header("Event", "Experiment", "Expression", "Variants")

	for _, event := range events {
		for _, rule := range triggers[event].Rules {
			expression := "(always)"
			if rule.Expression != nil {
				expression = *rule.Expression
				if len(expression) > 40 {
					expression = expression[:37] + "..."
				}
			}
			table.Append(event, rule.ExperimentID, expression, describeVariants(rule.VariantOptions))
		}
	}
	return table.Render()
}

func describeVariants(options []rules.VariantOption) string {
	parts := make([]string, 0, len(options))
	for _, opt := range options {
		label := fmt.Sprintf("%s=%d", opt.ID, opt.Weight)
		if opt.Kind == rules.VariantHoldout {
			label += " (holdout)"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

func printEvaluationTable(w io.Writer, ev Evaluation) error {
	table := tablewriter.NewWriter(w)
	table.Header("Event", "Result", "Experiment", "Variant", "Paywall")

	experimentID, variantID, paywallID := "-", "-", "-"
	if ev.Experiment != nil {
		experimentID = ev.Experiment.ID
		variantID = ev.Experiment.Variant.ID
		if ev.Experiment.Variant.PaywallID != "" {
			paywallID = ev.Experiment.Variant.PaywallID
		}
	}
	table.Append(ev.Event, ev.Result, experimentID, variantID, paywallID)
	if err := table.Render(); err != nil {
		return err
	}

	for _, u := range ev.Unmatched {
		if _, err := fmt.Fprintf(w, "unmatched: %s (%s)\n", u.ExperimentID, u.Reason); err != nil {
			return err
		}
	}
	return nil
}
