package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunFunc is one scheduled pass.
type RunFunc func(ctx context.Context) error

// Job runs fn every interval until stopped. Each pass gets its own timeout.
type Job struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       RunFunc
	log      *zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewJob(name string, interval, timeout time.Duration, fn RunFunc, logger *zerolog.Logger) *Job {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	l := logger.With().Str("component", "sched").Str("job", name).Logger()
	return &Job{name: name, interval: interval, timeout: timeout, fn: fn, log: &l}
}

// Start launches the loop in the background. Calling it twice has no effect.
func (j *Job) Start(parent context.Context) {
	if j.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	j.cancel = cancel
	j.done = make(chan struct{})
	go j.loop(ctx)
}

func (j *Job) loop(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer func() {
		ticker.Stop()
		close(j.done)
	}()

	j.log.Info().Dur("interval", j.interval).Msg("job started")
	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single pass synchronously.
func (j *Job) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().Interface("panic", r).Msg("job panicked")
		}
	}()
	if err := j.fn(runCtx); err != nil {
		j.log.Error().Err(err).Msg("job failed")
	}
}

// Stop cancels the loop and waits for the current pass to finish.
func (j *Job) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	j.cancel = nil
}
