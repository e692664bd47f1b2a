package presentation

import "github.com/TimurManjosov/gopaywall/internal/rules"

// Overrides tune a single presentation run.
type Overrides struct {
	// Locale overrides the pipeline's default locale for artifact building.
	Locale string
	// IgnoreSubscriptionStatus shows the paywall even to subscribed users.
	IgnoreSubscriptionStatus bool
}

// Request describes one presentation attempt. Exactly one of Event or
// Identifier is set: an event goes through rule evaluation, an explicit
// identifier skips it and presents that paywall directly. A request is
// owned by a single pipeline run and never shared.
type Request struct {
	Event      *rules.Event
	Identifier string

	// UserAttributes and DeviceAttributes feed the user.* and device.*
	// expression namespaces. Supplied by the host's identity and device
	// introspection collaborators.
	UserAttributes   map[string]any
	DeviceAttributes map[string]any

	Overrides Overrides

	// IsDebug marks debugger-driven requests: the subscription gate is
	// bypassed and the artifact is always rebuilt in isolation, never
	// served from the cache or written back to it.
	IsDebug bool
}

func (r Request) eventName() string {
	if r.Event == nil {
		return ""
	}
	return r.Event.Name
}
