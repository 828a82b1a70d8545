package metrics

import "time"

// BuildOutcomeLabel enumerates final build statuses.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess BuildOutcomeLabel = "success"
	BuildOutcomeWarning BuildOutcomeLabel = "warning"
	BuildOutcomeFailed  BuildOutcomeLabel = "failed"
)

// ActionResult enumerates what committing an action did.
type ActionResult string

const (
	ActionChanged   ActionResult = "changed"
	ActionUnchanged ActionResult = "unchanged"
	ActionDropped   ActionResult = "dropped"
	ActionFailed    ActionResult = "failed"
)

// Recorder defines observability hooks for builds, commits and watch events.
type Recorder interface {
	ObserveBuildDuration(kind string, d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	IncActionResult(kind string, result ActionResult)
	SetCommitConcurrency(n int)
	ObserveEventDuration(class string, d time.Duration)
	IncDroppedEvents()
	IncReloads()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) IncActionResult(string, ActionResult)       {}
func (NoopRecorder) SetCommitConcurrency(int)                   {}
func (NoopRecorder) ObserveEventDuration(string, time.Duration) {}
func (NoopRecorder) IncDroppedEvents()                          {}
func (NoopRecorder) IncReloads()                                {}
