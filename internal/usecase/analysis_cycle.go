package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
	domsvc "Sentinel/internal/domain/service"
	applogger "Sentinel/pkg/logger"
)

// ResultSubmitter hands a finished result to the delivery pipeline without blocking.
type ResultSubmitter interface {
	Submit(res *models.AnalysisResult) error
}

// AnalysisCycle evaluates the current snapshot on a fixed cadence and keeps the latest result.
type AnalysisCycle struct {
	store    *SnapshotStore
	engine   domsvc.Evaluator
	pipe     ResultSubmitter
	metrics  drepo.Metrics
	logger   *applogger.Logger
	interval time.Duration
	now      func() time.Time

	latest atomic.Pointer[models.AnalysisResult]
}

// NewAnalysisCycle wires the cycle. pipe may be nil when no sink is configured.
func NewAnalysisCycle(store *SnapshotStore, engine domsvc.Evaluator, pipe ResultSubmitter, metrics drepo.Metrics, logger *applogger.Logger, interval time.Duration) *AnalysisCycle {
	return &AnalysisCycle{
		store:    store,
		engine:   engine,
		pipe:     pipe,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// RunOnce takes one snapshot, evaluates it and publishes the result.
func (a *AnalysisCycle) RunOnce(ctx context.Context) models.AnalysisResult {
	start := time.Now()
	now := a.now()

	snap := a.store.Snapshot()
	res := a.engine.Evaluate(snap, now)
	a.latest.Store(&res)

	a.metrics.RecordAnalysis(&res, time.Since(start).Seconds())
	for _, h := range a.store.Health(now).Indicators {
		a.metrics.RecordIndicatorAge(h.Family, h.Age, h.Stale)
	}

	if a.pipe != nil {
		out := res.Clone()
		if err := a.pipe.Submit(&out); err != nil {
			a.metrics.RecordError("submit")
			a.logger.Warn("analysis result not queued",
				applogger.String("id", res.ID),
				applogger.Error(err),
			)
		}
	}

	a.logger.Debug("analysis cycle",
		applogger.String("symbol", res.Symbol),
		applogger.String("model", res.Model),
		applogger.Int("score", res.Score),
		applogger.String("action", string(res.Action)),
		applogger.Float64("confidence", res.Confidence),
		applogger.Int("signals", len(res.Signals)),
	)
	return res
}

// Latest returns a copy of the most recent result, if any cycle has run.
func (a *AnalysisCycle) Latest() (models.AnalysisResult, bool) {
	p := a.latest.Load()
	if p == nil {
		return models.AnalysisResult{}, false
	}
	return p.Clone(), true
}

// Restore seeds Latest from a stored result so readers have data during warm-up.
// It does nothing once a cycle has produced a result.
func (a *AnalysisCycle) Restore(ctx context.Context, loader drepo.ResultLoader, symbol string) error {
	if loader == nil {
		return nil
	}
	res, err := loader.LoadLatest(ctx, symbol)
	if err != nil {
		if errors.Is(err, drepo.ErrNoData) {
			return nil
		}
		return err
	}
	if res == nil {
		return nil
	}
	cp := res.Clone()
	if a.latest.CompareAndSwap(nil, &cp) {
		a.logger.Info("restored last analysis result",
			applogger.String("id", cp.ID),
			applogger.Time("generated_at", cp.GeneratedAt),
		)
	}
	return nil
}

// Register schedules the cycle.
func (a *AnalysisCycle) Register(s *Scheduler) error {
	return s.Every("analysis", a.interval, func(ctx context.Context) {
		a.RunOnce(ctx)
	})
}
