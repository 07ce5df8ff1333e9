package metrics

import "time"

// ResultLabel enumerates per-page build results.
type ResultLabel string

const (
	ResultRendered ResultLabel = "rendered"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
)

// BuildOutcome is the final status of a build.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// Recorder defines observability hooks for builds and the preview server.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	ObservePageRender(d time.Duration)
	IncPageResult(result ResultLabel)
	IncBuildOutcome(outcome BuildOutcome)
	IncPreviewRequest(status int)
	IncPreviewReload(success bool)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) ObservePageRender(time.Duration)            {}
func (NoopRecorder) IncPageResult(ResultLabel)                  {}
func (NoopRecorder) IncBuildOutcome(BuildOutcome)               {}
func (NoopRecorder) IncPreviewRequest(int)                      {}
func (NoopRecorder) IncPreviewReload(bool)                      {}
