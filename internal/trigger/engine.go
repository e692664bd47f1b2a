// Package trigger turns a tracked event into a trigger outcome: unknown
// event, no rule matched, holdout, or show-paywall with a resolved
// experiment. Assignment is sticky: once a variant has been confirmed for
// an experiment, every later evaluation reuses it.
package trigger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/gopaywall/internal/assign"
	"github.com/TimurManjosov/gopaywall/internal/engine"
	"github.com/TimurManjosov/gopaywall/internal/rules"
	"github.com/TimurManjosov/gopaywall/internal/store"
)

// ResultKind enumerates the four evaluation results.
type ResultKind string

const (
	// ResultUnknownEvent means no trigger is configured for the event name.
	ResultUnknownEvent ResultKind = "UNKNOWN_EVENT"
	// ResultNoRuleMatch means a trigger exists but no rule expression matched.
	ResultNoRuleMatch ResultKind = "NO_RULE_MATCH"
	// ResultHoldout means the user is in the control group: show nothing.
	ResultHoldout ResultKind = "HOLDOUT"
	// ResultPaywall means a paywall should be shown for the experiment.
	ResultPaywall ResultKind = "PAYWALL"
)

// UnmatchedRule records why a rule did not match, for debugging.
type UnmatchedRule struct {
	ExperimentID string `json:"experimentId"`
	Reason       string `json:"reason"`
}

// Result is the evaluation result. Experiment is valid for ResultHoldout and
// ResultPaywall; Unmatched is populated for ResultNoRuleMatch.
type Result struct {
	Kind       ResultKind       `json:"kind"`
	Experiment rules.Experiment `json:"experiment,omitzero"`
	Unmatched  []UnmatchedRule  `json:"unmatched,omitempty"`
}

// Outcome pairs the result with an assignment the caller must persist
// before acting on the result, if one was freshly rolled.
type Outcome struct {
	Result                Result
	ConfirmableAssignment *rules.Assignment
}

// Engine evaluates triggers. Safe for concurrent use.
type Engine struct {
	draw   assign.Draw
	logger zerolog.Logger
}

// New creates an engine with the given draw source. A nil draw uses the
// default RNG; tests inject a fixed draw for reproducible selection.
func New(draw assign.Draw, logger zerolog.Logger) *Engine {
	if draw == nil {
		draw = assign.DefaultDraw
	}
	return &Engine{draw: draw, logger: logger}
}

// Outcome evaluates the event against the trigger set.
//
// Rules are walked in declaration order and the first whose expression
// matches wins. For the matched rule, a previously confirmed assignment is
// reused to reconstruct the variant; otherwise a fresh variant is chosen
// and returned as a confirmable assignment for the caller to persist.
//
// Expression evaluation never fails; only variant selection
// (assign.ErrNoVariantsFound) and storage reads can produce an error, both
// of which abort the run.
func (e *Engine) Outcome(
	ctx context.Context,
	event rules.Event,
	triggers map[string]rules.Trigger,
	assignments store.AssignmentStorage,
	userAttributes map[string]any,
	deviceAttributes map[string]any,
) (Outcome, error) {
	trig, ok := triggers[event.Name]
	if !ok {
		return Outcome{Result: Result{Kind: ResultUnknownEvent}}, nil
	}

	evalCtx := engine.Context{
		Params: event.Parameters,
		User:   userAttributes,
		Device: deviceAttributes,
	}

	var unmatched []UnmatchedRule
	for _, rule := range trig.Rules {
		if !engine.Evaluate(rule.Expression, evalCtx) {
			unmatched = append(unmatched, UnmatchedRule{
				ExperimentID: rule.ExperimentID,
				Reason:       "expression_false",
			})
			continue
		}
		return e.resolveRule(ctx, rule, assignments)
	}

	e.logger.Debug().
		Str("event", event.Name).
		Int("rules", len(trig.Rules)).
		Msg("no rule matched")
	return Outcome{Result: Result{Kind: ResultNoRuleMatch, Unmatched: unmatched}}, nil
}

func (e *Engine) resolveRule(
	ctx context.Context,
	rule rules.TriggerRule,
	assignments store.AssignmentStorage,
) (Outcome, error) {
	variant, confirmable, err := e.resolveVariant(ctx, rule, assignments)
	if err != nil {
		return Outcome{}, err
	}

	experiment := rules.Experiment{
		ID:      rule.ExperimentID,
		GroupID: rule.GroupID,
		Variant: variant,
	}

	kind := ResultPaywall
	if variant.Kind == rules.VariantHoldout {
		kind = ResultHoldout
	}
	return Outcome{
		Result:                Result{Kind: kind, Experiment: experiment},
		ConfirmableAssignment: confirmable,
	}, nil
}

// resolveVariant returns the sticky variant for the rule's experiment, or
// rolls a fresh one. A confirmed variant id that no longer exists among the
// rule's options (the experiment changed server-side) triggers a re-roll.
func (e *Engine) resolveVariant(
	ctx context.Context,
	rule rules.TriggerRule,
	assignments store.AssignmentStorage,
) (rules.Variant, *rules.Assignment, error) {
	variantID, found, err := assignments.Get(ctx, rule.ExperimentID)
	if err != nil {
		return rules.Variant{}, nil, fmt.Errorf("read assignment for experiment %s: %w", rule.ExperimentID, err)
	}
	if found {
		for _, option := range rule.VariantOptions {
			if option.ID == variantID {
				return option.ToVariant(), nil, nil
			}
		}
		e.logger.Debug().
			Str("experiment_id", rule.ExperimentID).
			Str("variant_id", variantID).
			Msg("confirmed variant no longer configured, re-rolling")
	}

	variant, err := assign.ChooseVariant(rule.VariantOptions, e.draw)
	if err != nil {
		return rules.Variant{}, nil, fmt.Errorf("choose variant for experiment %s: %w", rule.ExperimentID, err)
	}
	confirmable := &rules.Assignment{
		ExperimentID: rule.ExperimentID,
		VariantID:    variant.ID,
	}
	return variant, confirmable, nil
}
