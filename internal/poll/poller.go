package poll

import (
	"context"
	"errors"

	"jobcrawl-engine/internal/scheduler"
)

// Schedule registers the configured crawl on s. An empty crawl.schedule
// registers nothing.
func (r *Runner) Schedule(s *scheduler.Scheduler) error {
	spec := r.Cfg.Crawl.Schedule
	if spec == "" {
		return nil
	}
	return s.Add(spec, "crawl", func(ctx context.Context) error {
		_, err := r.RunOnce(ctx, Options{})
		if errors.Is(err, ErrAlreadyRunning) {
			return nil
		}
		return err
	})
}

// Start claims the session slot and runs it in the background. It returns
// ErrAlreadyRunning without starting anything when the slot is taken.
func (r *Runner) Start(ctx context.Context, opts Options) error {
	release, err := r.claim()
	if err != nil {
		return err
	}
	go func() {
		defer release()
		_, _ = r.runOnce(ctx, opts)
	}()
	return nil
}
