package watch

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
)

// Periodic offers a scheduled rebuild to a Queue at a fixed interval.
type Periodic struct {
	scheduler gocron.Scheduler
}

// StartPeriodic schedules rebuilds every interval and starts the scheduler.
func StartPeriodic(interval time.Duration, queue *Queue, logger *slog.Logger) (*Periodic, error) {
	if interval <= 0 {
		return nil, ferrors.ValidationError("rebuild interval must be > 0").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "create scheduler").Build()
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if queue.Offer(Trigger{Reason: ReasonSchedule}) {
				logger.Debug("Scheduled rebuild queued", logfields.Trigger(ReasonSchedule))
			}
		}),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "schedule periodic rebuild").Build()
	}

	s.Start()
	logger.Info("Periodic rebuild scheduled", slog.Duration("interval", interval))
	return &Periodic{scheduler: s}, nil
}

// Stop shuts the scheduler down.
func (p *Periodic) Stop() error {
	return p.scheduler.Shutdown()
}
