package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
	"Sentinel/pkg/config"
	applogger "Sentinel/pkg/logger"
)

// PollerSchedules maps each indicator family to its configured cadence.
func PollerSchedules(p config.Pollers) map[models.Family]config.Poller {
	return map[models.Family]config.Poller{
		models.FamilyPrice:        p.Price,
		models.FamilyFunding:      p.Funding,
		models.FamilyOpenInterest: p.OpenInterest,
		models.FamilyLongShort:    p.LongShort,
		models.FamilyOrderFlow:    p.OrderFlow,
	}
}

// Cadences extracts the poll intervals as scheduled, used for staleness.
func Cadences(p config.Pollers) map[models.Family]time.Duration {
	out := make(map[models.Family]time.Duration, len(models.Families))
	for f, s := range PollerSchedules(p) {
		out[f] = config.ScheduleInterval(s.Interval)
	}
	return out
}

// PollerSupervisor fetches indicator families from the exchange and writes them into the store.
// A failed fetch never touches the stored value and never stops the schedule.
type PollerSupervisor struct {
	md        drepo.MarketData
	store     *SnapshotStore
	metrics   drepo.Metrics
	logger    *applogger.Logger
	symbol    string
	schedules map[models.Family]config.Poller
	limit     int
	period    string
	largeQty  float64
	now       func() time.Time
}

func NewPollerSupervisor(cfg *config.Config, md drepo.MarketData, store *SnapshotStore, metrics drepo.Metrics, logger *applogger.Logger) *PollerSupervisor {
	return &PollerSupervisor{
		md:        md,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		symbol:    cfg.Symbol,
		schedules: PollerSchedules(cfg.Pollers),
		limit:     cfg.Pollers.TradesLimit,
		period:    string(drepo.NormalizePeriod(cfg.Pollers.LongShortSpan)),
		largeQty:  cfg.Pollers.LargeTradeQty,
		now:       time.Now,
	}
}

// Poll runs one fetch for f under the family timeout. The error is returned for
// callers that care (warm-up, tests); it has already been logged and recorded.
func (p *PollerSupervisor) Poll(ctx context.Context, f models.Family) error {
	sched, ok := p.schedules[f]
	if !ok {
		return fmt.Errorf("poll: unknown family %q", f)
	}

	issuedAt := p.now()
	fctx, cancel := context.WithTimeout(ctx, sched.Timeout)
	defer cancel()

	start := time.Now()
	applied, err := p.fetch(fctx, f, issuedAt)
	elapsed := time.Since(start).Seconds()
	p.metrics.RecordFetch(f, elapsed, err)

	if err != nil {
		p.store.RecordFailure(f, p.now(), err)
		p.logger.Warn("indicator poll failed",
			applogger.String("family", string(f)),
			applogger.String("symbol", p.symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("poll %s: %w", f, err)
	}
	if !applied {
		p.logger.Debug("discarded out-of-order indicator result",
			applogger.String("family", string(f)),
			applogger.Time("issued_at", issuedAt),
		)
	}
	return nil
}

func (p *PollerSupervisor) fetch(ctx context.Context, f models.Family, issuedAt time.Time) (bool, error) {
	switch f {
	case models.FamilyPrice:
		t, err := p.md.Get24hTicker(ctx, p.symbol)
		if err != nil {
			return false, err
		}
		if err := checkTicker(t); err != nil {
			return false, err
		}
		return p.store.UpdatePrice(issuedAt, p.now(), t), nil

	case models.FamilyFunding:
		fi, err := p.md.GetFundingRate(ctx, p.symbol)
		if err != nil {
			return false, err
		}
		if !finite(fi.Rate, fi.MarkPrice, fi.IndexPrice) {
			return false, fmt.Errorf("%w: non-finite funding %v", drepo.ErrMalformed, fi.Rate)
		}
		return p.store.UpdateFunding(issuedAt, p.now(), fi), nil

	case models.FamilyOpenInterest:
		v, err := p.md.GetOpenInterest(ctx, p.symbol)
		if err != nil {
			return false, err
		}
		if !finite(v) {
			return false, fmt.Errorf("%w: open interest %v", drepo.ErrMalformed, v)
		}
		if v <= 0 {
			return false, fmt.Errorf("%w: open interest %v", drepo.ErrNoData, v)
		}
		return p.store.UpdateOpenInterest(issuedAt, p.now(), v), nil

	case models.FamilyLongShort:
		r, err := p.md.GetLongShortRatio(ctx, p.symbol, p.period)
		if err != nil {
			return false, err
		}
		if err := checkLongShort(r); err != nil {
			return false, err
		}
		return p.store.UpdateLongShort(issuedAt, p.now(), r), nil

	case models.FamilyOrderFlow:
		trades, err := p.md.GetRecentTrades(ctx, p.symbol, p.limit)
		if err != nil {
			return false, err
		}
		if len(trades) == 0 {
			return false, drepo.ErrNoData
		}
		for _, t := range trades {
			if !finite(t.Price, t.Quantity) {
				return false, fmt.Errorf("%w: trade at %s", drepo.ErrMalformed, t.Time.Format(time.RFC3339))
			}
		}
		return p.store.UpdateOrderFlow(issuedAt, p.now(), trades, p.largeQty), nil
	}
	return false, fmt.Errorf("unknown family %q", f)
}

func checkTicker(t models.Ticker24h) error {
	if !finite(t.Last, t.Change, t.ChangePercent, t.High, t.Low) {
		return fmt.Errorf("%w: non-finite ticker", drepo.ErrMalformed)
	}
	if t.Last <= 0 {
		return fmt.Errorf("%w: ticker without last price", drepo.ErrNoData)
	}
	if t.High > 0 && t.Low > 0 && t.High < t.Low {
		return fmt.Errorf("%w: high %v below low %v", drepo.ErrMalformed, t.High, t.Low)
	}
	return nil
}

func checkLongShort(r models.LongShortReading) error {
	if !finite(r.Ratio, r.LongAccount, r.ShortAccount) || (r.TopRatio != nil && !finite(*r.TopRatio)) {
		return fmt.Errorf("%w: non-finite long/short reading", drepo.ErrMalformed)
	}
	if r.Ratio <= 0 {
		return fmt.Errorf("%w: long/short ratio %v", drepo.ErrMalformed, r.Ratio)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PollAll fetches every family once, concurrently, and waits for all of them.
// It returns how many families failed.
func (p *PollerSupervisor) PollAll(ctx context.Context) int {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, f := range models.Families {
		wg.Add(1)
		go func(f models.Family) {
			defer wg.Done()
			if err := p.Poll(ctx, f); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(f)
	}
	wg.Wait()

	p.logger.Info("indicator warm-up complete",
		applogger.Int("families", len(models.Families)),
		applogger.Int("failed", failed),
	)
	return failed
}

// Register schedules one job per family.
func (p *PollerSupervisor) Register(s *Scheduler) error {
	for _, f := range models.Families {
		f := f
		if err := s.Every("poll:"+string(f), p.schedules[f].Interval, func(ctx context.Context) {
			_ = p.Poll(ctx, f)
		}); err != nil {
			return err
		}
	}
	return nil
}
