package presentation

import "github.com/TimurManjosov/gopaywall/internal/rules"

// DispositionKind is the terminal state of a pipeline run.
type DispositionKind string

const (
	// DispositionPresented means the artifact was handed to the sink.
	DispositionPresented DispositionKind = "PRESENTED"
	// DispositionSkipped means evaluation completed with nothing to show.
	// Skips are expected outcomes, not failures.
	DispositionSkipped DispositionKind = "SKIPPED"
	// DispositionErrored means the run failed; Err carries the cause.
	DispositionErrored DispositionKind = "ERRORED"
)

// SkipReason says why a run was skipped.
type SkipReason string

const (
	// ReasonEventNotFound: no trigger is configured for the event.
	ReasonEventNotFound SkipReason = "EVENT_NOT_FOUND"
	// ReasonNoRuleMatch: a trigger exists but no rule matched.
	ReasonNoRuleMatch SkipReason = "NO_RULE_MATCH"
	// ReasonHoldout: the user is in the experiment's control group.
	ReasonHoldout SkipReason = "HOLDOUT"
	// ReasonUserIsSubscribed: the user already has an active subscription.
	ReasonUserIsSubscribed SkipReason = "USER_IS_SUBSCRIBED"
)

// Disposition is the single terminal state of one pipeline run. Exactly one
// is produced per request.
type Disposition struct {
	Kind DispositionKind

	// Artifact and Experiment are set for Presented; Experiment is also set
	// for holdout skips.
	Artifact   *Artifact
	Experiment *rules.Experiment

	// Reason is set for Skipped.
	Reason SkipReason

	// Err is set for Errored.
	Err error
}

func presented(artifact Artifact, experiment *rules.Experiment) Disposition {
	return Disposition{Kind: DispositionPresented, Artifact: &artifact, Experiment: experiment}
}

func skipped(reason SkipReason, experiment *rules.Experiment) Disposition {
	return Disposition{Kind: DispositionSkipped, Reason: reason, Experiment: experiment}
}

func errored(err error) Disposition {
	return Disposition{Kind: DispositionErrored, Err: err}
}
