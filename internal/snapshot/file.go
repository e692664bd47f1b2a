package snapshot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

// campaignFile is the on-disk YAML layout. Triggers and paywalls are lists
// for readability; they are keyed by event name and paywall id in memory.
type campaignFile struct {
	Triggers []rules.Trigger `yaml:"triggers"`
	Paywalls []PaywallDef    `yaml:"paywalls"`
}

// LoadFile parses and validates a campaign YAML file and returns a ready
// snapshot. The file must pass full campaign validation; a partially valid
// campaign is never loaded.
func LoadFile(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaign file: %w", err)
	}
	return Parse(raw)
}

// Parse builds a snapshot from raw campaign YAML.
func Parse(raw []byte) (*Snapshot, error) {
	var file campaignFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse campaign yaml: %w", err)
	}

	triggers := make(map[string]rules.Trigger, len(file.Triggers))
	for _, t := range file.Triggers {
		if t.EventName == "" {
			return nil, fmt.Errorf("trigger without event name")
		}
		if _, dup := triggers[t.EventName]; dup {
			return nil, fmt.Errorf("duplicate trigger for event %q", t.EventName)
		}
		triggers[t.EventName] = t
	}
	if err := rules.ValidateCampaign(triggers); err != nil {
		return nil, err
	}

	paywalls := make(map[string]PaywallDef, len(file.Paywalls))
	for _, pw := range file.Paywalls {
		if pw.ID == "" {
			return nil, fmt.Errorf("paywall without id")
		}
		if _, dup := paywalls[pw.ID]; dup {
			return nil, fmt.Errorf("duplicate paywall id %q", pw.ID)
		}
		paywalls[pw.ID] = pw
	}

	// Every treatment must point at a configured paywall so a broken
	// reference is caught at load time, not mid-presentation.
	for event, t := range triggers {
		for _, r := range t.Rules {
			for _, opt := range r.VariantOptions {
				if opt.Kind == rules.VariantTreatment {
					if _, ok := paywalls[opt.PaywallID]; !ok {
						return nil, fmt.Errorf("trigger %q variant %q references unknown paywall %q", event, opt.ID, opt.PaywallID)
					}
				}
			}
		}
	}

	return Build(triggers, paywalls), nil
}
