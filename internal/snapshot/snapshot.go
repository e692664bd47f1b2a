// Package snapshot holds the immutable, atomically swapped view of the
// active campaign configuration. Readers always see a complete snapshot;
// writers publish a new one and notify subscribers.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/gopaywall/internal/rules"
	"github.com/TimurManjosov/gopaywall/internal/telemetry"
)

// PaywallDef is the configured definition of one paywall: where its remote
// artifact lives and which products it sells.
type PaywallDef struct {
	ID       string         `json:"id" yaml:"id"`
	URL      string         `json:"url" yaml:"url"`
	Products []string       `json:"products,omitempty" yaml:"products,omitempty"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Snapshot is one immutable view of the campaign. Never mutate a published
// snapshot; build a new one and swap.
type Snapshot struct {
	ETag      string                   `json:"etag"`
	Triggers  map[string]rules.Trigger `json:"triggers"`
	Paywalls  map[string]PaywallDef    `json:"paywalls"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// Build assembles a snapshot and derives its ETag from the content so
// identical campaigns always share an ETag.
func Build(triggers map[string]rules.Trigger, paywalls map[string]PaywallDef) *Snapshot {
	if triggers == nil {
		triggers = map[string]rules.Trigger{}
	}
	if paywalls == nil {
		paywalls = map[string]PaywallDef{}
	}
	blob, _ := json.Marshal(struct {
		Triggers map[string]rules.Trigger `json:"triggers"`
		Paywalls map[string]PaywallDef    `json:"paywalls"`
	}{triggers, paywalls})
	sum := sha256.Sum256(blob)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return &Snapshot{
		ETag:      etag,
		Triggers:  triggers,
		Paywalls:  paywalls,
		UpdatedAt: time.Now().UTC(),
	}
}

// Provider owns the current snapshot and its subscriber list. The zero
// value is not usable; call NewProvider.
type Provider struct {
	current atomic.Pointer[Snapshot]
	subs    subscribers
}

// NewProvider starts with an empty snapshot so callers never observe nil.
func NewProvider() *Provider {
	p := &Provider{}
	p.current.Store(Build(nil, nil))
	return p
}

// Current returns the active snapshot.
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// CurrentTriggers exposes the trigger set of the active snapshot.
func (p *Provider) CurrentTriggers() map[string]rules.Trigger {
	return p.current.Load().Triggers
}

// Update swaps in a new snapshot and notifies subscribers with its ETag.
func (p *Provider) Update(s *Snapshot) {
	p.current.Store(s)
	telemetry.SnapshotTriggers.Set(float64(len(s.Triggers)))
	p.subs.publish(s.ETag)
}

// Subscribe registers a listener for snapshot updates. The channel carries
// the new ETag; slow listeners miss intermediate updates instead of
// blocking the publisher. The returned func unsubscribes.
func (p *Provider) Subscribe() (<-chan string, func()) {
	return p.subs.subscribe()
}
