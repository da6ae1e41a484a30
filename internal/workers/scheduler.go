// Package workers runs the service's periodic background jobs.
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work. The context is cancelled when the
// scheduler stops or the job's timeout elapses.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped and panics are recovered and logged.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	logger  *logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
	running bool
}

func NewScheduler(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "scheduler")
	cl := cronLogger{logger: log}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds a named job on a standard cron spec or a descriptor such as
// "@every 1m". Names must be unique.
func (s *Scheduler) Register(name, spec string, timeout time.Duration, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, timeout, job) })
	if err != nil {
		return fmt.Errorf("schedule job %q: %w", name, err)
	}
	s.entries[name] = id
	s.logger.WithFields(map[string]interface{}{"job": name, "spec": spec}).Info("Registered background job")
	return nil
}

// RunNow executes a registered job's function synchronously, outside the
// cron schedule.
func (s *Scheduler) RunNow(name string, timeout time.Duration, job Job) error {
	return s.execute(name, timeout, job)
}

func (s *Scheduler) run(name string, timeout time.Duration, job Job) {
	_ = s.execute(name, timeout, job)
}

func (s *Scheduler) execute(name string, timeout time.Duration, job Job) error {
	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	log := s.logger.WithField("job", name)
	if err := job(ctx); err != nil {
		log.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds()).Error("Background job failed")
		return err
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Background job finished")
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.WithField("jobs", len(s.entries)).Info("Scheduler started")
}

// Stop cancels in-flight jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports when the named job runs next.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(kvFields(keysAndValues)).Error("cron: " + msg)
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
