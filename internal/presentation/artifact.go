package presentation

import "time"

// Artifact is the fully-prepared, cacheable payload that the presentation
// layer displays: the resolved paywall plus everything needed to render it
// for one locale. The core never interprets its contents.
type Artifact struct {
	PaywallID string         `json:"paywallId"`
	Locale    string         `json:"locale"`
	URL       string         `json:"url,omitempty"`
	Products  []string       `json:"products,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	BuiltAt   time.Time      `json:"builtAt"`
}
