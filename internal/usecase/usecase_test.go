package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
	"Sentinel/internal/services/analysis"
	"Sentinel/pkg/config"
	applogger "Sentinel/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	mu       sync.Mutex
	ticker   models.Ticker24h
	funding  models.FundingInfo
	oi       float64
	ls       models.LongShortReading
	trades   []models.Trade
	failWith error
	delay    time.Duration
	calls    map[models.Family]int
}

func (f *fakeMarket) hit(ctx context.Context, fam models.Family) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[models.Family]int)
	}
	f.calls[fam]++
	err, delay := f.failWith, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeMarket) Get24hTicker(ctx context.Context, _ string) (models.Ticker24h, error) {
	if err := f.hit(ctx, models.FamilyPrice); err != nil {
		return models.Ticker24h{}, err
	}
	return f.ticker, nil
}

func (f *fakeMarket) GetFundingRate(ctx context.Context, _ string) (models.FundingInfo, error) {
	if err := f.hit(ctx, models.FamilyFunding); err != nil {
		return models.FundingInfo{}, err
	}
	return f.funding, nil
}

func (f *fakeMarket) GetOpenInterest(ctx context.Context, _ string) (float64, error) {
	if err := f.hit(ctx, models.FamilyOpenInterest); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oi, nil
}

func (f *fakeMarket) GetLongShortRatio(ctx context.Context, _, _ string) (models.LongShortReading, error) {
	if err := f.hit(ctx, models.FamilyLongShort); err != nil {
		return models.LongShortReading{}, err
	}
	return f.ls, nil
}

func (f *fakeMarket) GetRecentTrades(ctx context.Context, _ string, _ int) ([]models.Trade, error) {
	if err := f.hit(ctx, models.FamilyOrderFlow); err != nil {
		return nil, err
	}
	return f.trades, nil
}

func (f *fakeMarket) setFailure(err error) {
	f.mu.Lock()
	f.failWith = err
	f.mu.Unlock()
}

type nopMetrics struct {
	mu       sync.Mutex
	fetchErr int
	analyses int
	errors   []string
}

func (m *nopMetrics) RecordFetch(_ models.Family, _ float64, err error) {
	if err != nil {
		m.mu.Lock()
		m.fetchErr++
		m.mu.Unlock()
	}
}
func (m *nopMetrics) RecordIndicatorAge(models.Family, time.Duration, bool) {}
func (m *nopMetrics) RecordAnalysis(*models.AnalysisResult, float64) {
	m.mu.Lock()
	m.analyses++
	m.mu.Unlock()
}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}
func (m *nopMetrics) RecordLatency(string, float64) {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg
}

func healthyMarket() *fakeMarket {
	base := time.Unix(1_700_000_000, 0)
	return &fakeMarket{
		ticker:  models.Ticker24h{Last: 100, Change: 1, ChangePercent: 1, High: 105, Low: 95},
		funding: models.FundingInfo{Rate: 0.0001, MarkPrice: 100},
		oi:      80_000,
		ls:      models.LongShortReading{Ratio: 1.2, LongAccount: 0.545, ShortAccount: 0.455},
		trades: []models.Trade{
			{Time: base, Price: 100, Quantity: 3},
			{Time: base.Add(time.Second), Price: 100, Quantity: 1, IsSell: true},
		},
	}
}

func newSupervisor(t *testing.T, md drepo.MarketData) (*PollerSupervisor, *SnapshotStore, *nopMetrics) {
	t.Helper()
	cfg := testConfig(t)
	store := NewSnapshotStore(cfg.Symbol, Cadences(cfg.Pollers), cfg.Analysis.StaleMultiplier)
	m := &nopMetrics{}
	return NewPollerSupervisor(cfg, md, store, m, applogger.Nop()), store, m
}

func TestSnapshotStore_DiscardsOlderRequest(t *testing.T) {
	s := NewSnapshotStore("BTCUSDT", nil, 3)
	t0 := time.Unix(1_700_000_000, 0)

	require.True(t, s.UpdatePrice(t0.Add(time.Second), t0.Add(2*time.Second), models.Ticker24h{Last: 101}))
	assert.False(t, s.UpdatePrice(t0, t0.Add(3*time.Second), models.Ticker24h{Last: 99}))

	snap := s.Snapshot()
	assert.Equal(t, 101.0, snap.Price.Current)
	assert.Equal(t, t0.Add(2*time.Second), snap.Price.LastUpdated)
}

func TestSnapshotStore_OpenInterestHistory(t *testing.T) {
	s := NewSnapshotStore("BTCUSDT", nil, 3)
	t0 := time.Unix(1_700_000_000, 0)

	s.UpdateOpenInterest(t0, t0, 100)
	s.UpdateOpenInterest(t0.Add(time.Second), t0.Add(time.Second), 110)

	oi := s.Snapshot().OpenInterest
	assert.Equal(t, 110.0, oi.Current)
	assert.Equal(t, 100.0, oi.Previous)
	assert.InDelta(t, 10, oi.ChangePercent, 1e-9)
}

func TestSnapshotStore_CopyIsolation(t *testing.T) {
	s := NewSnapshotStore("BTCUSDT", nil, 3)
	t0 := time.Unix(1_700_000_000, 0)
	top := 1.5
	s.UpdateLongShort(t0, t0, models.LongShortReading{Ratio: 1.1, TopRatio: &top})
	s.UpdateOrderFlow(t0, t0, []models.Trade{{Time: t0, Price: 1, Quantity: 100}}, 50)

	top = 9
	snap := s.Snapshot()
	*snap.LongShort.TopTraderRatio = 7
	snap.OrderFlow.LargeTrades[0].Quantity = 0

	again := s.Snapshot()
	assert.Equal(t, 1.5, *again.LongShort.TopTraderRatio)
	assert.Equal(t, 100.0, again.OrderFlow.LargeTrades[0].Quantity)
}

func TestSnapshotStore_Health(t *testing.T) {
	cadence := map[models.Family]time.Duration{models.FamilyPrice: time.Second}
	s := NewSnapshotStore("BTCUSDT", cadence, 3)
	t0 := time.Unix(1_700_000_000, 0)

	report := s.Health(t0)
	assert.True(t, report.Degraded)
	for _, h := range report.Indicators {
		assert.True(t, h.Stale, "family %s never updated", h.Family)
	}

	s.UpdatePrice(t0, t0, models.Ticker24h{Last: 100})
	s.RecordFailure(models.FamilyFunding, t0, errors.New("boom"))

	report = s.Health(t0.Add(2 * time.Second))
	byFamily := map[models.Family]models.IndicatorHealth{}
	for _, h := range report.Indicators {
		byFamily[h.Family] = h
	}
	assert.False(t, byFamily[models.FamilyPrice].Stale)
	assert.Equal(t, 2*time.Second, byFamily[models.FamilyPrice].Age)
	assert.Equal(t, 1, byFamily[models.FamilyFunding].ConsecutiveFailures)
	assert.Equal(t, "boom", byFamily[models.FamilyFunding].LastError)

	assert.True(t, s.Health(t0.Add(4 * time.Second)).Indicators[0].Stale)
}

func TestPollerSupervisor_SuccessOverwrites(t *testing.T) {
	md := healthyMarket()
	p, store, _ := newSupervisor(t, md)

	failed := p.PollAll(context.Background())
	require.Zero(t, failed)

	snap := store.Snapshot()
	assert.Equal(t, 100.0, snap.Price.Current)
	assert.Equal(t, 0.0001, snap.Funding.Rate)
	assert.Equal(t, 80_000.0, snap.OpenInterest.Current)
	assert.Equal(t, 1.2, snap.LongShort.Ratio)
	assert.InDelta(t, 200, snap.OrderFlow.Delta, 1e-9)
	assert.False(t, store.Health(time.Now()).Degraded)

	md.mu.Lock()
	md.oi = 88_000
	md.mu.Unlock()
	require.NoError(t, p.Poll(context.Background(), models.FamilyOpenInterest))
	assert.InDelta(t, 10, store.Snapshot().OpenInterest.ChangePercent, 1e-9)
}

func TestPollerSupervisor_FailureKeepsLastValue(t *testing.T) {
	md := healthyMarket()
	p, store, m := newSupervisor(t, md)
	require.NoError(t, p.Poll(context.Background(), models.FamilyPrice))
	before := store.Snapshot().Price

	md.setFailure(errors.New("exchange down"))
	err := p.Poll(context.Background(), models.FamilyPrice)
	require.Error(t, err)

	assert.Equal(t, before, store.Snapshot().Price)
	assert.Equal(t, 1, m.fetchErr)
	for _, h := range store.Health(time.Now()).Indicators {
		if h.Family == models.FamilyPrice {
			assert.Equal(t, 1, h.ConsecutiveFailures)
			assert.Contains(t, h.LastError, "exchange down")
		}
	}
}

func TestPollerSupervisor_RejectsMalformedPayloads(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		family models.Family
		mutate func(*fakeMarket)
	}{
		{"high below low", models.FamilyPrice, func(m *fakeMarket) { m.ticker.High, m.ticker.Low = 90, 110 }},
		{"non-finite price", models.FamilyPrice, func(m *fakeMarket) { m.ticker.ChangePercent = math.Inf(1) }},
		{"non-finite funding", models.FamilyFunding, func(m *fakeMarket) { m.funding.Rate = nan }},
		{"non-finite open interest", models.FamilyOpenInterest, func(m *fakeMarket) { m.oi = nan }},
		{"negative ratio", models.FamilyLongShort, func(m *fakeMarket) { m.ls.Ratio = -1 }},
		{"zero ratio", models.FamilyLongShort, func(m *fakeMarket) { m.ls.Ratio = 0 }},
		{"non-finite top ratio", models.FamilyLongShort, func(m *fakeMarket) { m.ls.TopRatio = &nan }},
		{"non-finite trade", models.FamilyOrderFlow, func(m *fakeMarket) { m.trades[0].Quantity = nan }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := healthyMarket()
			p, store, _ := newSupervisor(t, md)
			require.Zero(t, p.PollAll(context.Background()))
			before := store.Snapshot()

			md.mu.Lock()
			tt.mutate(md)
			md.mu.Unlock()

			err := p.Poll(context.Background(), tt.family)
			require.ErrorIs(t, err, drepo.ErrMalformed)

			after := store.Snapshot()
			assert.Equal(t, before, after)
			_, merr := json.Marshal(after)
			assert.NoError(t, merr)
			for _, h := range store.Health(time.Now()).Indicators {
				if h.Family == tt.family {
					assert.Equal(t, 1, h.ConsecutiveFailures)
				}
			}
		})
	}
}

func TestPollerSupervisor_EmptyTradesIsNoData(t *testing.T) {
	md := healthyMarket()
	md.trades = nil
	p, store, _ := newSupervisor(t, md)

	err := p.Poll(context.Background(), models.FamilyOrderFlow)
	assert.ErrorIs(t, err, drepo.ErrNoData)
	assert.True(t, store.Snapshot().OrderFlow.LastUpdated.IsZero())
}

func TestPollerSupervisor_Timeout(t *testing.T) {
	md := healthyMarket()
	md.delay = time.Second
	p, store, _ := newSupervisor(t, md)
	p.schedules[models.FamilyFunding] = config.Poller{Interval: time.Second, Timeout: 20 * time.Millisecond}

	err := p.Poll(context.Background(), models.FamilyFunding)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, store.Snapshot().Funding.LastUpdated.IsZero())
}

type captureSubmitter struct {
	mu      sync.Mutex
	results []*models.AnalysisResult
	err     error
}

func (c *captureSubmitter) Submit(res *models.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.results = append(c.results, res)
	return nil
}

type staticLoader struct {
	res *models.AnalysisResult
	err error
}

func (s staticLoader) LoadLatest(context.Context, string) (*models.AnalysisResult, error) {
	return s.res, s.err
}

func TestAnalysisCycle_RunOnce(t *testing.T) {
	cfg := testConfig(t)
	md := healthyMarket()
	md.funding.Rate = -0.0002
	p, store, m := newSupervisor(t, md)
	require.Zero(t, p.PollAll(context.Background()))

	sub := &captureSubmitter{}
	cycle := NewAnalysisCycle(store, analysis.NewEngine(cfg), sub, m, applogger.Nop(), cfg.Analysis.Interval)

	_, ok := cycle.Latest()
	assert.False(t, ok)

	res := cycle.RunOnce(context.Background())
	latest, ok := cycle.Latest()
	require.True(t, ok)
	assert.Equal(t, res.ID, latest.ID)
	assert.Equal(t, "BTCUSDT", latest.Symbol)
	assert.True(t, latest.Action.Valid())
	assert.Equal(t, 1, m.analyses)

	require.Len(t, sub.results, 1)
	assert.Equal(t, res.ID, sub.results[0].ID)

	latest.Signals = append(latest.Signals, models.Signal{Rule: "mutated"})
	again, _ := cycle.Latest()
	assert.Len(t, again.Signals, len(res.Signals))
}

func TestAnalysisCycle_SubmitFailureIsCounted(t *testing.T) {
	cfg := testConfig(t)
	store := NewSnapshotStore(cfg.Symbol, Cadences(cfg.Pollers), cfg.Analysis.StaleMultiplier)
	m := &nopMetrics{}
	cycle := NewAnalysisCycle(store, analysis.NewEngine(cfg), &captureSubmitter{err: errors.New("full")}, m, applogger.Nop(), time.Second)

	res := cycle.RunOnce(context.Background())

	assert.Equal(t, models.ActionWait, res.Action)
	assert.Equal(t, []string{"submit"}, m.errors)
}

func TestAnalysisCycle_Restore(t *testing.T) {
	cfg := testConfig(t)
	store := NewSnapshotStore(cfg.Symbol, Cadences(cfg.Pollers), cfg.Analysis.StaleMultiplier)
	cycle := NewAnalysisCycle(store, analysis.NewEngine(cfg), nil, &nopMetrics{}, applogger.Nop(), time.Second)

	require.NoError(t, cycle.Restore(context.Background(), staticLoader{err: drepo.ErrNoData}, "BTCUSDT"))
	_, ok := cycle.Latest()
	assert.False(t, ok)

	stored := &models.AnalysisResult{ID: "stored", Action: models.ActionWait}
	require.NoError(t, cycle.Restore(context.Background(), staticLoader{res: stored}, "BTCUSDT"))
	got, ok := cycle.Latest()
	require.True(t, ok)
	assert.Equal(t, "stored", got.ID)

	fresh := cycle.RunOnce(context.Background())
	require.NoError(t, cycle.Restore(context.Background(), staticLoader{res: stored}, "BTCUSDT"))
	got, _ = cycle.Latest()
	assert.Equal(t, fresh.ID, got.ID)
}

func TestScheduler_RegistersAndRuns(t *testing.T) {
	s := NewScheduler(applogger.Nop())
	ran := make(chan struct{}, 4)

	require.NoError(t, s.Every("tick", time.Second, func(ctx context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))
	assert.Error(t, s.Every("tick", time.Second, func(context.Context) {}))
	assert.Error(t, s.Every("zero", 0, func(context.Context) {}))
	assert.Equal(t, []string{"tick"}, s.Jobs())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, s.Stop(stopCtx))
}

func TestPollerSupervisor_RegisterAllFamilies(t *testing.T) {
	p, _, _ := newSupervisor(t, healthyMarket())
	s := NewScheduler(applogger.Nop())

	require.NoError(t, p.Register(s))
	assert.Len(t, s.Jobs(), len(models.Families))
}

func TestScheduler_RoundsToWholeSeconds(t *testing.T) {
	s := NewScheduler(applogger.Nop())
	require.NoError(t, s.Every("fractional", 1500*time.Millisecond, func(context.Context) {}))
	require.NoError(t, s.Every("fast", 200*time.Millisecond, func(context.Context) {}))

	for name, want := range map[string]time.Duration{"fractional": time.Second, "fast": time.Second} {
		sched, ok := s.cron.Entry(s.entries[name]).Schedule.(cron.ConstantDelaySchedule)
		require.True(t, ok, name)
		assert.Equal(t, want, sched.Delay, name)
	}
}
