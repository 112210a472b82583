package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
	mid "Sentinel/internal/middleware"
	"Sentinel/internal/repository"
	"Sentinel/internal/usecase"
	"Sentinel/pkg/config"
	xhttp "Sentinel/pkg/http"
	applogger "Sentinel/pkg/logger"
)

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	supervisor *usecase.PollerSupervisor
	cycle      *usecase.AnalysisCycle
	pipeline   *mid.ResultPipeline
	sinks      *repository.FanoutPublisher
	httpServer *xhttp.Server
	loader     drepo.ResultLoader
	closers    []closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	supervisor *usecase.PollerSupervisor,
	cycle *usecase.AnalysisCycle,
	pipeline *mid.ResultPipeline,
	sinks *repository.FanoutPublisher,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		supervisor: supervisor,
		cycle:      cycle,
		pipeline:   pipeline,
		sinks:      sinks,
		httpServer: httpServer,
	}
}

// SetResultLoader sets where a previous result is restored from at startup.
func (a *App) SetResultLoader(l drepo.ResultLoader) { a.loader = l }

// AddCloser registers a resource released last during shutdown, in reverse order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// warmUp restores the last stored result, then fills the snapshot once.
func (a *App) warmUp(ctx context.Context) {
	if err := a.cycle.Restore(ctx, a.loader, a.cfg.Symbol); err != nil {
		a.logger.Warn("restore last result failed", applogger.Error(err))
	}
	if failed := a.supervisor.PollAll(ctx); failed == len(models.Families) {
		a.logger.Warn("no indicator could be fetched during warm-up")
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("starting sentinel",
		applogger.String("env", a.cfg.Environment),
		applogger.String("symbol", a.cfg.Symbol),
		applogger.String("model", a.cfg.Analysis.Model),
		applogger.Strings("sinks", a.sinks.Sinks()),
	)

	// the pipeline outlives the signal so Stop can drain it
	a.pipeline.Start(context.Background())
	a.warmUp(ctx)
	a.cycle.RunOnce(ctx)

	scheduler := usecase.NewScheduler(a.logger)
	if err := a.supervisor.Register(scheduler); err != nil {
		return fmt.Errorf("register pollers: %w", err)
	}
	if err := a.cycle.Register(scheduler); err != nil {
		return fmt.Errorf("register analysis: %w", err)
	}
	scheduler.Start(ctx)
	a.logger.Debug("scheduled jobs", applogger.Strings("jobs", scheduler.Jobs()))

	errCh := a.httpServer.Start()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.logger.Error("http server error", applogger.Error(err))
			runErr = err
		}
	}

	return errors.Join(runErr, a.shutdown(scheduler))
}

// RunOnce warms the snapshot, evaluates it once and delivers the result to the sinks.
func (a *App) RunOnce(ctx context.Context) (models.AnalysisResult, error) {
	a.pipeline.Start(ctx)
	a.warmUp(ctx)
	res := a.cycle.RunOnce(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	err := a.pipeline.Stop(stopCtx)
	return res, errors.Join(err, a.closeSinks())
}

// shutdown stops producers before consumers so queued results can still be delivered.
func (a *App) shutdown(scheduler *usecase.Scheduler) error {
	timeout := a.cfg.Server.ShutdownTimeout
	var errs []error

	step := func(name string, fn func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		if err := fn(ctx); err != nil {
			a.logger.Warn(name+" stop error", applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		a.logger.Debug(name+" stopped", applogger.Duration("took", time.Since(start)))
	}

	step("scheduler", scheduler.Stop)
	step("pipeline", a.pipeline.Stop)
	step("http server", a.httpServer.Stop)
	if err := a.closeSinks(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeSinks() error {
	var errs []error
	if err := a.sinks.Close(); err != nil {
		a.logger.Warn("sink close error", applogger.Error(err))
		errs = append(errs, err)
	}
	// the log collector publishes through the producer, so flush it first
	a.logger.RemoveCollector()
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn(c.name+" close error", applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}
