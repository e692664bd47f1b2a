package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/gopaywall/internal/presentation"
	"github.com/TimurManjosov/gopaywall/internal/rules"
	"github.com/TimurManjosov/gopaywall/internal/snapshot"
)

// SnapshotBuilder resolves paywall identifiers against the active campaign
// snapshot. It implements presentation.ArtifactBuilder for hosts whose
// paywall definitions live in the campaign file rather than a remote CDN.
type SnapshotBuilder struct {
	Provider *snapshot.Provider
}

func (b SnapshotBuilder) Build(ctx context.Context, identifier, locale string, _ presentation.Overrides) (presentation.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return presentation.Artifact{}, err
	}
	def, ok := b.Provider.Current().Paywalls[identifier]
	if !ok {
		return presentation.Artifact{}, presentation.ErrNoArtifactConfigured
	}
	return presentation.Artifact{
		PaywallID: def.ID,
		Locale:    locale,
		URL:       def.URL,
		Products:  def.Products,
		Config:    def.Config,
		BuiltAt:   time.Now().UTC(),
	}, nil
}

type subscriptionKey struct{}

// WithSubscription attaches the caller-reported subscription status to the
// request context. The HTTP host is stateless, so each track request
// carries its user's status instead of a device-wide provider.
func WithSubscription(ctx context.Context, sub presentation.Subscription) context.Context {
	return context.WithValue(ctx, subscriptionKey{}, sub)
}

// RequestSubscriptions reads the subscription status from the request
// context; UNKNOWN when the request did not report one.
type RequestSubscriptions struct{}

func (RequestSubscriptions) Current(ctx context.Context) presentation.Subscription {
	if sub, ok := ctx.Value(subscriptionKey{}).(presentation.Subscription); ok {
		return sub
	}
	return presentation.Subscription{State: presentation.SubscriptionUnknown}
}

// ImmediateIdentity reports identity as always ready. Server-side callers
// identify themselves in the request; there is no async identity resolution
// to wait for.
type ImmediateIdentity struct{}

func (ImmediateIdentity) AwaitReady(ctx context.Context) error { return ctx.Err() }

// LogSink records the presentation decision. The HTTP host has no UI; the
// response body is the real delivery channel and the sink is the audit log.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Present(ctx context.Context, artifact presentation.Artifact, experiment *rules.Experiment) error {
	evt := s.Logger.Info().
		Str("paywall_id", artifact.PaywallID).
		Str("locale", artifact.Locale).
		Str("url", artifact.URL)
	if experiment != nil && experiment.ID != "" {
		evt = evt.Str("experiment_id", experiment.ID).Str("variant_id", experiment.Variant.ID)
	}
	evt.Msg("paywall presented")
	return nil
}
