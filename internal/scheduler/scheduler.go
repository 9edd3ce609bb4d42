// Package scheduler owns the daily automation trigger. The job fires at the
// configured wall-clock time, rolling to the next day when that time has
// already passed on startup. The scheduler is process-scoped state with an
// explicit lifecycle; nothing lives at module level.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// ScheduleDaily registers fn to run every day at the given "HH:MM" time.
func (s *Scheduler) ScheduleDaily(at string, fn func()) error {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("invalid schedule time %q: %w", at, err)
	}

	_, err = s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(t.Hour()), uint(t.Minute()), 0),
		)),
		gocron.NewTask(fn),
		gocron.WithName("daily-automation"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule daily job: %w", err)
	}
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
