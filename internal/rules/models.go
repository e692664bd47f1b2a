package rules

import (
	"time"

	"github.com/google/uuid"
)

// VariantKind distinguishes a variant that shows a paywall from a holdout
// control group (string values for clean JSON/YAML serialization).
type VariantKind string

const (
	// VariantTreatment shows the paywall identified by PaywallID.
	VariantTreatment VariantKind = "TREATMENT"
	// VariantHoldout shows nothing; the user is in the control group.
	VariantHoldout VariantKind = "HOLDOUT"
)

// VariantOption is one weighted outcome of an experiment as configured in a
// campaign. The options of a rule define a discrete distribution over Weight.
type VariantOption struct {
	ID        string      `json:"id" yaml:"id"`
	Kind      VariantKind `json:"kind" yaml:"kind"`
	PaywallID string      `json:"paywallId,omitempty" yaml:"paywallId,omitempty"`
	Weight    int         `json:"weight" yaml:"weight"`
}

// ToVariant converts the configured option into the resolved variant.
func (o VariantOption) ToVariant() Variant {
	return Variant{
		ID:        o.ID,
		Kind:      o.Kind,
		PaywallID: o.PaywallID,
	}
}

// Variant is the concrete outcome chosen for a user: either a treatment
// pointing at a paywall or a holdout.
type Variant struct {
	ID        string      `json:"id"`
	Kind      VariantKind `json:"kind"`
	PaywallID string      `json:"paywallId,omitempty"`
}

// Experiment is the immutable record of which rule and variant were resolved
// for one evaluation. It is attached to the presentation result.
type Experiment struct {
	ID      string  `json:"experimentId"`
	GroupID string  `json:"groupId"`
	Variant Variant `json:"variant"`
}

// PresentByID returns a synthetic experiment for paywalls requested directly
// by identifier, bypassing rule evaluation.
func PresentByID(paywallID string) Experiment {
	return Experiment{
		ID:      "",
		GroupID: "",
		Variant: Variant{
			ID:        "",
			Kind:      VariantTreatment,
			PaywallID: paywallID,
		},
	}
}

// Assignment is the durable, sticky binding of an experiment to the variant
// the user was first exposed to.
type Assignment struct {
	ExperimentID string `json:"experimentId"`
	VariantID    string `json:"variantId"`
}

// TriggerRule is one conditional clause of a trigger. A nil Expression
// matches every event. VariantOptions must be non-empty for any rule that is
// reachable; an empty set is a configuration error surfaced at evaluation.
type TriggerRule struct {
	ExperimentID   string          `json:"experimentId" yaml:"experimentId"`
	GroupID        string          `json:"groupId" yaml:"groupId"`
	Expression     *string         `json:"expression,omitempty" yaml:"expression,omitempty"`
	VariantOptions []VariantOption `json:"variants" yaml:"variants"`
}

// Trigger maps an event name to an ordered list of rules. Rule order is a
// semantic guarantee: the first matching rule wins.
type Trigger struct {
	EventName string        `json:"event" yaml:"event"`
	Rules     []TriggerRule `json:"rules" yaml:"rules"`
}

// Event is a named occurrence tracked by the host application. Immutable
// once created.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// NewEvent creates an event with a fresh id and the current timestamp.
func NewEvent(name string, parameters map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Name:       name,
		Parameters: parameters,
		CreatedAt:  time.Now().UTC(),
	}
}
