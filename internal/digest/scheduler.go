package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule runs the digest daily at 12:00 UTC.
const DefaultSchedule = "0 12 * * *"

// Scheduler triggers a Job on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	job    *Job
	logger *zap.Logger
	entry  cron.EntryID
}

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("digest: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// NewScheduler registers job under expr. An empty expr uses DefaultSchedule.
func NewScheduler(job *Job, expr string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expr == "" {
		expr = DefaultSchedule
	}
	if err := ValidateSchedule(expr); err != nil {
		return nil, err
	}

	cl := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{cron: c, job: job, logger: logger}
	id, err := c.AddFunc(expr, func() {
		_, _ = job.Run(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("digest: schedule job: %w", err)
	}
	s.entry = id
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("daily news digest scheduled", zap.Time("next", s.Next()))
}

// Stop halts scheduling and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
