// Package presentation runs the multi-stage pipeline that turns a tracked
// event into a terminal disposition: present a paywall, skip with a reason,
// or fail. Stages execute strictly in order and the run ends in exactly one
// terminal state.
package presentation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/gopaywall/internal/cache"
	"github.com/TimurManjosov/gopaywall/internal/coalesce"
	"github.com/TimurManjosov/gopaywall/internal/rules"
	"github.com/TimurManjosov/gopaywall/internal/store"
	"github.com/TimurManjosov/gopaywall/internal/telemetry"
	"github.com/TimurManjosov/gopaywall/internal/trigger"
)

// DefaultLocale is used when neither the pipeline nor the request override
// the artifact locale.
const DefaultLocale = "en"

// Deps are the collaborators a pipeline needs. All fields except Logger and
// Locale are required.
type Deps struct {
	Config        ConfigProvider
	Assignments   store.AssignmentStorage
	Identity      IdentityReadiness
	Builder       ArtifactBuilder
	Subscriptions SubscriptionStatusProvider
	Sink          PresentationSink
	Engine        *trigger.Engine

	// Locale is the default artifact locale; DefaultLocale when empty.
	Locale string
	Logger zerolog.Logger
}

// Pipeline coordinates one presentation run per Present call. Safe for
// concurrent use: any number of runs may be in flight, sharing the artifact
// cache and build coalescer.
type Pipeline struct {
	deps      Deps
	locale    string
	coalescer *coalesce.Coalescer[cache.Key, Artifact]
	artifacts *cache.Store[Artifact]
	logger    zerolog.Logger
}

// New creates a pipeline. It returns an error if a required collaborator is
// missing; a half-wired pipeline must fail at construction, not mid-run.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("presentation: Config is required")
	case deps.Assignments == nil:
		return nil, errors.New("presentation: Assignments is required")
	case deps.Identity == nil:
		return nil, errors.New("presentation: Identity is required")
	case deps.Builder == nil:
		return nil, errors.New("presentation: Builder is required")
	case deps.Subscriptions == nil:
		return nil, errors.New("presentation: Subscriptions is required")
	case deps.Sink == nil:
		return nil, errors.New("presentation: Sink is required")
	case deps.Engine == nil:
		return nil, errors.New("presentation: Engine is required")
	}

	locale := deps.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	return &Pipeline{
		deps:      deps,
		locale:    locale,
		coalescer: coalesce.New[cache.Key, Artifact](),
		artifacts: cache.NewStore[Artifact](),
		logger:    deps.Logger,
	}, nil
}

// InvalidateArtifacts drops every cached artifact. Called on campaign
// refresh or identity reset.
func (p *Pipeline) InvalidateArtifacts() {
	p.artifacts.RemoveAll()
}

// Present runs the full stage sequence for one request and returns its
// single terminal disposition. Cancellation of ctx at any suspension point
// yields an Errored disposition wrapping ErrCancelled; already-committed
// side effects (persisted assignments, cached artifacts) remain.
func (p *Pipeline) Present(ctx context.Context, req Request) Disposition {
	d := p.run(ctx, req)
	p.observe(req, d)
	return d
}

func (p *Pipeline) run(ctx context.Context, req Request) Disposition {
	// AwaitingIdentity: the only stage that may block indefinitely; bounded
	// by the host's ctx, not by the pipeline.
	if err := p.deps.Identity.AwaitReady(ctx); err != nil {
		return errored(cancelErr(fmt.Errorf("await identity: %w", err)))
	}

	p.logger.Debug().
		Str("event", req.eventName()).
		Str("identifier", req.Identifier).
		Bool("debug", req.IsDebug).
		Msg("presentation requested")

	// RuleEvaluation.
	experiment, terminal := p.evaluateRules(ctx, req)
	if terminal != nil {
		return *terminal
	}

	// ArtifactAcquisition.
	artifact, err := p.acquireArtifact(ctx, experiment.Variant.PaywallID, req)
	if err != nil {
		if errors.Is(err, ErrNoArtifactConfigured) {
			// A missing paywall for a subscribed user mirrors dashboard
			// behavior: nothing to sell them, so it is a skip, not an error.
			if p.userIsSubscribed(ctx, req) {
				return skipped(ReasonUserIsSubscribed, &experiment)
			}
			return errored(err)
		}
		return errored(cancelErr(fmt.Errorf("acquire artifact: %w", err)))
	}

	// SubscriptionGate.
	if p.userIsSubscribed(ctx, req) {
		return skipped(ReasonUserIsSubscribed, &experiment)
	}

	// Terminal/Presented: the run ends once presentation is initiated.
	if err := p.deps.Sink.Present(ctx, artifact, &experiment); err != nil {
		return errored(cancelErr(fmt.Errorf("present artifact: %w", err)))
	}
	return presented(artifact, &experiment)
}

// evaluateRules runs the trigger engine and the assignment-confirmation
// stage. It returns the experiment to continue with, or a terminal
// disposition for the unknown-event, no-match and holdout outcomes.
func (p *Pipeline) evaluateRules(ctx context.Context, req Request) (rules.Experiment, *Disposition) {
	if req.Identifier != "" {
		// Paywall-by-identifier skips rule evaluation entirely.
		return rules.PresentByID(req.Identifier), nil
	}
	if req.Event == nil {
		d := errored(errors.New("request carries neither event nor identifier"))
		return rules.Experiment{}, &d
	}
	if err := ctx.Err(); err != nil {
		d := errored(cancelErr(err))
		return rules.Experiment{}, &d
	}

	// Always the latest snapshot at the start of the stage.
	triggers := p.deps.Config.CurrentTriggers()

	outcome, err := p.deps.Engine.Outcome(ctx, *req.Event, triggers, p.deps.Assignments, req.UserAttributes, req.DeviceAttributes)
	if err != nil {
		d := errored(cancelErr(fmt.Errorf("evaluate rules: %w", err)))
		return rules.Experiment{}, &d
	}

	switch outcome.Result.Kind {
	case trigger.ResultUnknownEvent:
		d := skipped(ReasonEventNotFound, nil)
		return rules.Experiment{}, &d
	case trigger.ResultNoRuleMatch:
		p.logUnmatched(req, outcome.Result.Unmatched)
		d := skipped(ReasonNoRuleMatch, nil)
		return rules.Experiment{}, &d
	}

	// AssignmentConfirmed: the assignment must be durable before anything is
	// shown, so a retry can never re-roll.
	if ca := outcome.ConfirmableAssignment; ca != nil {
		if err := p.deps.Assignments.Put(ctx, *ca); err != nil {
			d := errored(cancelErr(fmt.Errorf("confirm assignment: %w", err)))
			return rules.Experiment{}, &d
		}
	}

	experiment := outcome.Result.Experiment
	if outcome.Result.Kind == trigger.ResultHoldout {
		d := skipped(ReasonHoldout, &experiment)
		return rules.Experiment{}, &d
	}
	return experiment, nil
}

// acquireArtifact serves from the result cache when possible, otherwise
// builds through the coalescer so concurrent runs for the same key share
// one build.
func (p *Pipeline) acquireArtifact(ctx context.Context, identifier string, req Request) (Artifact, error) {
	locale := req.Overrides.Locale
	if locale == "" {
		locale = p.locale
	}
	key := cache.NewKey(identifier, locale)

	if req.IsDebug {
		// Debug requests are cache-isolated in both directions: never
		// served from the cache or a shared flight, never written back.
		telemetry.ArtifactBuilds.Inc()
		p.logger.Debug().Stringer("key", key).Uint64("key_digest", key.Digest()).Msg("debug artifact build")
		return p.deps.Builder.Build(ctx, identifier, locale, req.Overrides)
	}

	if artifact, ok := p.artifacts.Get(key); ok {
		telemetry.ArtifactCacheHits.Inc()
		p.logger.Debug().Stringer("key", key).Uint64("key_digest", key.Digest()).Msg("artifact cache hit")
		return artifact, nil
	}
	telemetry.ArtifactCacheMisses.Inc()

	return p.coalescer.Do(ctx, key, func(workCtx context.Context) (Artifact, error) {
		telemetry.ArtifactBuilds.Inc()
		p.logger.Debug().Stringer("key", key).Uint64("key_digest", key.Digest()).Msg("artifact build started")
		artifact, err := p.deps.Builder.Build(workCtx, identifier, locale, req.Overrides)
		if err != nil {
			return Artifact{}, err
		}
		p.artifacts.Put(key, artifact)
		return artifact, nil
	})
}

func (p *Pipeline) userIsSubscribed(ctx context.Context, req Request) bool {
	if req.IsDebug || req.Overrides.IgnoreSubscriptionStatus {
		return false
	}
	return p.deps.Subscriptions.Current(ctx).State == SubscriptionActive
}

func (p *Pipeline) logUnmatched(req Request, unmatched []trigger.UnmatchedRule) {
	if len(unmatched) == 0 {
		return
	}
	arr := zerolog.Arr()
	for _, u := range unmatched {
		arr.Str(u.ExperimentID + ":" + u.Reason)
	}
	p.logger.Debug().
		Str("event", req.eventName()).
		Array("unmatched", arr).
		Msg("no rule matched")
}

func (p *Pipeline) observe(req Request, d Disposition) {
	telemetry.Dispositions.WithLabelValues(string(d.Kind), string(d.Reason)).Inc()

	evt := p.logger.Info().
		Str("event", req.eventName()).
		Str("disposition", string(d.Kind))
	if d.Reason != "" {
		evt = evt.Str("reason", string(d.Reason))
	}
	if d.Experiment != nil {
		evt = evt.Str("experiment_id", d.Experiment.ID).Str("variant_id", d.Experiment.Variant.ID)
	}
	if d.Err != nil {
		evt = evt.Err(d.Err)
	}
	evt.Msg("presentation finished")
}
