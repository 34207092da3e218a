package build

import (
	"context"
	"errors"
	"time"

	"github.com/blackmann/home-archive-2022-01/internal/logfields"
	"github.com/blackmann/home-archive-2022-01/internal/metrics"
)

// runStages executes stages in order, recording timing and stopping on the
// first error.
func runStages(ctx context.Context, st *State, stages []StageDef) error {
	for _, def := range stages {
		if err := ctx.Err(); err != nil {
			se := newStageError(def.Name, err)
			st.Report.FailedStage = def.Name
			st.Recorder.IncStageResult(string(def.Name), metrics.ResultCanceled)
			return se
		}

		st.Logger.Debug("Stage started", logfields.Stage(string(def.Name)))
		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)

		st.Report.StageDurations[def.Name] = dur
		st.Recorder.ObserveStageDuration(string(def.Name), dur)
		st.Logger.Debug("Stage finished",
			logfields.Stage(string(def.Name)),
			logfields.DurationMS(float64(dur.Microseconds())/1000))

		if err != nil {
			se := newStageError(def.Name, err)
			st.Report.FailedStage = def.Name
			if se.Kind == StageErrorCanceled {
				st.Recorder.IncStageResult(string(def.Name), metrics.ResultCanceled)
			} else {
				st.Recorder.IncStageResult(string(def.Name), metrics.ResultFatal)
			}
			return se
		}
		st.Recorder.IncStageResult(string(def.Name), metrics.ResultSuccess)
	}
	return nil
}

func isCanceled(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == StageErrorCanceled
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
