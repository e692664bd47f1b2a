package rules

import (
	"errors"
	"fmt"
)

// ErrNoVariants is returned when a rule has an empty variant set.
var ErrNoVariants = errors.New("rule has no variants")

// ValidateTrigger checks the structural invariants of a single trigger:
// every rule has variants, weights are non-negative, variant ids are unique
// within a rule, holdouts carry no paywall id and treatments carry one.
func ValidateTrigger(t Trigger) error {
	if t.EventName == "" {
		return errors.New("trigger event name cannot be empty")
	}
	for i, rule := range t.Rules {
		if err := validateRule(rule); err != nil {
			return fmt.Errorf("trigger %q rule %d: %w", t.EventName, i, err)
		}
	}
	return nil
}

// ValidateCampaign validates every trigger in a campaign and checks that map
// keys agree with the trigger event names.
func ValidateCampaign(triggers map[string]Trigger) error {
	for name, t := range triggers {
		if t.EventName != name {
			return fmt.Errorf("trigger keyed %q declares event name %q", name, t.EventName)
		}
		if err := ValidateTrigger(t); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(rule TriggerRule) error {
	if rule.ExperimentID == "" {
		return errors.New("experiment id cannot be empty")
	}
	if len(rule.VariantOptions) == 0 {
		return ErrNoVariants
	}

	seen := make(map[string]bool, len(rule.VariantOptions))
	for _, option := range rule.VariantOptions {
		if option.ID == "" {
			return errors.New("variant id cannot be empty")
		}
		if seen[option.ID] {
			return fmt.Errorf("duplicate variant id %q", option.ID)
		}
		seen[option.ID] = true

		if option.Weight < 0 {
			return fmt.Errorf("variant %q has negative weight", option.ID)
		}
		switch option.Kind {
		case VariantTreatment:
			if option.PaywallID == "" {
				return fmt.Errorf("treatment variant %q has no paywall id", option.ID)
			}
		case VariantHoldout:
			if option.PaywallID != "" {
				return fmt.Errorf("holdout variant %q has a paywall id", option.ID)
			}
		default:
			return fmt.Errorf("variant %q has unknown kind %q", option.ID, option.Kind)
		}
	}
	return nil
}
