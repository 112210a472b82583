package usecase

import (
	"sync"
	"time"

	"Sentinel/internal/domain/models"
)

type familyStatus struct {
	issuedAt    time.Time // request time of the value currently held
	lastAttempt time.Time
	failures    int
	lastErr     string
}

// SnapshotStore owns the indicator snapshot. Each family is written only by its poller,
// and readers always get a deep copy taken under one lock.
type SnapshotStore struct {
	mu        sync.RWMutex
	snap      models.IndicatorSnapshot
	status    map[models.Family]*familyStatus
	cadence   map[models.Family]time.Duration
	staleMult float64
}

// NewSnapshotStore creates an empty store. cadence is used to judge staleness.
func NewSnapshotStore(symbol string, cadence map[models.Family]time.Duration, staleMult float64) *SnapshotStore {
	s := &SnapshotStore{
		snap:      models.IndicatorSnapshot{Symbol: symbol},
		status:    make(map[models.Family]*familyStatus, len(models.Families)),
		cadence:   cadence,
		staleMult: staleMult,
	}
	for _, f := range models.Families {
		s.status[f] = &familyStatus{}
	}
	return s
}

// apply runs mutate unless a newer request already landed for f.
func (s *SnapshotStore) apply(f models.Family, issuedAt time.Time, mutate func(*models.IndicatorSnapshot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status[f]
	if issuedAt.Before(st.issuedAt) {
		return false
	}
	mutate(&s.snap)
	st.issuedAt = issuedAt
	st.lastAttempt = issuedAt
	st.failures = 0
	st.lastErr = ""
	return true
}

func (s *SnapshotStore) UpdatePrice(issuedAt, at time.Time, t models.Ticker24h) bool {
	return s.apply(models.FamilyPrice, issuedAt, func(snap *models.IndicatorSnapshot) {
		snap.Price = models.PriceState{
			Current:        t.Last,
			AbsoluteChange: t.Change,
			ChangePercent:  t.ChangePercent,
			High24h:        t.High,
			Low24h:         t.Low,
			LastUpdated:    at,
		}
	})
}

func (s *SnapshotStore) UpdateFunding(issuedAt, at time.Time, fi models.FundingInfo) bool {
	return s.apply(models.FamilyFunding, issuedAt, func(snap *models.IndicatorSnapshot) {
		snap.Funding = models.FundingState{
			Rate:               fi.Rate,
			NextSettlementTime: fi.NextSettlementTime,
			MarkPrice:          fi.MarkPrice,
			IndexPrice:         fi.IndexPrice,
			LastUpdated:        at,
		}
	})
}

// UpdateOpenInterest shifts the held value into Previous before storing the new one.
func (s *SnapshotStore) UpdateOpenInterest(issuedAt, at time.Time, value float64) bool {
	return s.apply(models.FamilyOpenInterest, issuedAt, func(snap *models.IndicatorSnapshot) {
		next := models.NextOpenInterest(snap.OpenInterest, value)
		next.LastUpdated = at
		snap.OpenInterest = next
	})
}

func (s *SnapshotStore) UpdateLongShort(issuedAt, at time.Time, r models.LongShortReading) bool {
	var top *float64
	if r.TopRatio != nil {
		v := *r.TopRatio
		top = &v
	}
	return s.apply(models.FamilyLongShort, issuedAt, func(snap *models.IndicatorSnapshot) {
		snap.LongShort = models.LongShortState{
			Ratio:          r.Ratio,
			TopTraderRatio: top,
			LongAccount:    r.LongAccount,
			ShortAccount:   r.ShortAccount,
			LastUpdated:    at,
		}
	})
}

func (s *SnapshotStore) UpdateOrderFlow(issuedAt, at time.Time, trades []models.Trade, largeQty float64) bool {
	flow := models.SummarizeOrderFlow(trades, largeQty)
	flow.LastUpdated = at
	return s.apply(models.FamilyOrderFlow, issuedAt, func(snap *models.IndicatorSnapshot) {
		snap.OrderFlow = flow
	})
}

// RecordFailure notes a failed poll. The held value is left as it was.
func (s *SnapshotStore) RecordFailure(f models.Family, at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status[f]
	st.lastAttempt = at
	st.failures++
	if err != nil {
		st.lastErr = err.Error()
	}
}

// Snapshot returns a point-in-time copy of every family.
func (s *SnapshotStore) Snapshot() models.IndicatorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Health reports freshness per family. A family that never succeeded is stale.
func (s *SnapshotStore) Health(now time.Time) models.HealthReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := models.HealthReport{
		Symbol:     s.snap.Symbol,
		Indicators: make([]models.IndicatorHealth, 0, len(models.Families)),
		CheckedAt:  now,
	}
	for _, f := range models.Families {
		st := s.status[f]
		h := models.IndicatorHealth{
			Family:              f,
			LastUpdated:         s.snap.LastUpdated(f),
			LastAttempt:         st.lastAttempt,
			ConsecutiveFailures: st.failures,
			LastError:           st.lastErr,
		}
		if h.LastUpdated.IsZero() {
			h.Stale = true
		} else {
			h.Age = now.Sub(h.LastUpdated)
			limit := time.Duration(s.staleMult * float64(s.cadence[f]))
			h.Stale = limit > 0 && h.Age > limit
		}
		if h.Stale {
			report.Degraded = true
		}
		report.Indicators = append(report.Indicators, h)
	}
	return report
}
