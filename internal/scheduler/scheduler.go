// Package scheduler runs named tasks on cron expressions.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"jobcrawl-engine/internal/logger"
)

type Task func(ctx context.Context) error

// Scheduler wraps a cron runner. A run that is still going when its next
// tick fires is skipped.
type Scheduler struct {
	c   *cron.Cron
	log logger.Interface
	ctx context.Context
}

func New(log logger.Interface) *Scheduler {
	if log == nil {
		log = logger.NewNoOp()
	}
	log = log.WithComponent("scheduler")
	cl := cronLogger{log}
	return &Scheduler{
		c:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log: log,
		ctx: context.Background(),
	}
}

// Add registers task under spec, a standard 5-field expression or a
// descriptor such as "@every 6h".
func (s *Scheduler) Add(spec, name string, task Task) error {
	_, err := s.c.AddFunc(spec, func() {
		s.log.Info("task started", "task", name)
		if err := task(s.ctx); err != nil {
			s.log.Error("task failed", "task", name, "error", err)
			return
		}
		s.log.Info("task finished", "task", name)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Len() int { return len(s.c.Entries()) }

// Run starts the scheduler and blocks until ctx is done, then waits for
// running tasks to return.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.c.Start()
	<-ctx.Done()
	<-s.c.Stop().Done()
}

type cronLogger struct{ log logger.Interface }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
