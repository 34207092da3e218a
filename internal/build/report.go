package build

import (
	"time"

	"github.com/blackmann/home-archive-2022-01/internal/metrics"
)

// Report summarizes one build run.
type Report struct {
	BuildID string
	Start   time.Time
	End     time.Time

	Outcome        metrics.BuildOutcomeLabel
	StageDurations map[StageName]time.Duration
	// FailedStage is set when the build aborted.
	FailedStage StageName
	Err         error

	Posts            int
	Experiments      int
	PagesWritten     int
	StylesCompiled   int
	AssetsCopied     int
	ExperimentAssets int
}

func newReport(buildID string) *Report {
	return &Report{
		BuildID:        buildID,
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
	}
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

func (r *Report) finish(err error) {
	r.End = time.Now()
	r.Err = err
	switch {
	case err == nil:
		r.Outcome = metrics.BuildOutcomeSuccess
	case isCanceled(err):
		r.Outcome = metrics.BuildOutcomeCanceled
	default:
		r.Outcome = metrics.BuildOutcomeFailed
	}
}
