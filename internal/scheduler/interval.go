// Package scheduler runs recurring background jobs at a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dbsmedya/goshard/internal/logger"
)

// Job is one unit of recurring work.
type Job func(ctx context.Context) error

// Every runs job every interval until ctx is cancelled. The first run
// happens one interval after Every is called. Runs never overlap: the
// timer for the next run is armed only after the previous run returns.
// Errors and panics are logged and do not stop the schedule.
func Every(ctx context.Context, name string, interval time.Duration, job Job, log *logger.Logger) {
	if log == nil {
		log = logger.NewDefault()
	}
	if interval <= 0 {
		log.Errorf("Job %s not scheduled: interval must be positive, got %s", name, interval)
		return
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugf("Job %s stopped: %v", name, ctx.Err())
			return
		case <-timer.C:
		}

		if err := runOnce(ctx, job); err != nil {
			log.Warnf("Job %s run failed: %v", name, err)
		}

		timer.Reset(interval)
	}
}

// Start runs Every in a new goroutine. The returned channel is closed when
// the schedule has stopped.
func Start(ctx context.Context, name string, interval time.Duration, job Job, log *logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		Every(ctx, name, interval, job, log)
	}()
	return done
}

// runOnce isolates a single run so a panic is reported as an error.
func runOnce(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return job(ctx)
}
