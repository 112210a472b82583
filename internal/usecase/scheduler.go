package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Sentinel/pkg/config"
	applogger "Sentinel/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler runs named periodic jobs, each in its own goroutine.
// A job whose previous run is still in flight skips that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *applogger.Logger

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]cron.EntryID
	started bool
}

func NewScheduler(logger *applogger.Logger) *Scheduler {
	cl := cronLogger{l: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		ctx:     context.Background(),
		entries: make(map[string]cron.EntryID),
	}
}

// Every registers fn to run every d, rounded down to whole seconds (one second at least).
func (s *Scheduler) Every(name string, d time.Duration, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	if d <= 0 {
		return fmt.Errorf("scheduler: job %q needs a positive interval", name)
	}
	every := config.ScheduleInterval(d)
	if every != d {
		s.logger.Warn("interval not a whole number of seconds, rounding",
			applogger.String("job", name),
			applogger.Duration("interval_ms", d),
			applogger.Duration("scheduled_ms", every),
		)
	}

	id := s.cron.Schedule(cron.Every(every), cron.FuncJob(func() {
		fn(s.jobContext())
	}))
	s.entries[name] = id
	return nil
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Start begins ticking. Jobs receive ctx and should stop when it is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", applogger.Int("jobs", len(s.entries)))
}

// Stop stops new ticks and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// cronLogger routes cron's own logging into the application logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, applogger.Any(key, kv[i+1]))
	}
	return fields
}
