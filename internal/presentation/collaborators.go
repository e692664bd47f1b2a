package presentation

import (
	"context"
	"errors"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

// ErrNoArtifactConfigured is returned by an ArtifactBuilder when no paywall
// is configured for the requested identifier. It is distinguished from
// other build failures: for a subscribed user this is a skip, not an error.
var ErrNoArtifactConfigured = errors.New("no artifact configured for identifier")

// ConfigProvider supplies the current trigger set. The pipeline reads a
// fresh snapshot at the start of each rule evaluation; the returned map
// must not be mutated.
type ConfigProvider interface {
	CurrentTriggers() map[string]rules.Trigger
}

// IdentityReadiness signals when the user-identity subsystem has resolved.
// AwaitReady blocks until identity is ready, the context is cancelled, or
// the collaborator fails.
type IdentityReadiness interface {
	AwaitReady(ctx context.Context) error
}

// ArtifactBuilder performs the network fetch and product load that turns a
// paywall identifier into a presentable artifact.
type ArtifactBuilder interface {
	Build(ctx context.Context, identifier, locale string, overrides Overrides) (Artifact, error)
}

// SubscriptionState is the user's current subscription standing.
type SubscriptionState string

const (
	SubscriptionUnknown  SubscriptionState = "UNKNOWN"
	SubscriptionActive   SubscriptionState = "ACTIVE"
	SubscriptionInactive SubscriptionState = "INACTIVE"
)

// Subscription is the subscription status with its active entitlements.
type Subscription struct {
	State        SubscriptionState
	Entitlements []string
}

// SubscriptionStatusProvider reports the user's subscription status.
type SubscriptionStatusProvider interface {
	Current(ctx context.Context) Subscription
}

// PresentationSink receives the final artifact. The pipeline's job ends
// once Present has been initiated; the UI lifecycle beyond that is the
// host's concern.
type PresentationSink interface {
	Present(ctx context.Context, artifact Artifact, experiment *rules.Experiment) error
}
