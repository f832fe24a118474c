package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PolicyDigest/internal/logging"
	"PolicyDigest/internal/ports"
)

// CronScheduler triggers the job on a standard five-field cron expression.
// Overlapping triggers are skipped while a run is still in progress.
type CronScheduler struct {
	spec       string
	location   *time.Location
	runOnStart bool
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// Options tunes a CronScheduler.
type Options struct {
	Location   *time.Location
	RunOnStart bool
	Logger     *slog.Logger
}

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, opts Options) *CronScheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &CronScheduler{
		spec:       spec,
		location:   loc,
		runOnStart: opts.RunOnStart,
		logger:     logger.With("component", "cron"),
	}
}

// Start validates the expression and begins scheduling. It is a no-op when already started.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	log := cronLogger{logger: c.logger}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	engine := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(c.location),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	run := cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	})
	id, err := engine.AddJob(c.spec, run)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}

	engine.Start()
	c.cron = engine
	c.logger.Info("scheduler started", "spec", c.spec, "location", c.location.String(), "next", engine.Entry(id).Next)

	if c.runOnStart {
		go engine.Entry(id).WrappedJob.Run()
	}
	return nil
}

// Stop halts scheduling and waits for a running job until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	engine := c.cron
	c.cron = nil
	c.mu.Unlock()

	if engine == nil {
		return nil
	}

	done := engine.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
