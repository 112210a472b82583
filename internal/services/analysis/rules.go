package analysis

import (
	"fmt"
	"sort"
	"time"

	"Sentinel/internal/domain/models"
	domsvc "Sentinel/internal/domain/service"
	"Sentinel/pkg/config"
)

// Rule ids, also used as metric labels.
const (
	RuleCrowdedLong   = "crowded_long"
	RuleFlowDumpLow   = "flow_dump_near_low"
	RuleShortSqueeze  = "short_squeeze"
	RuleLongShortEdge = "long_short_extreme"
	RuleBreakout      = "breakout"
	RuleDistribution  = "distribution"
	RuleBullTrap      = "bull_trap_divergence"
	RuleBearExhausted = "bear_exhaustion"
)

// RuleInput is everything a rule may look at in one cycle.
type RuleInput struct {
	Snap  models.IndicatorSnapshot
	Score int
	Trend models.Trend
}

// Rule inspects one cycle's input and raises at most one signal.
type Rule struct {
	ID    string
	Check func(in RuleInput) (models.Signal, bool)
}

// RuleSet evaluates a fixed ordered list of rules.
type RuleSet struct {
	rules     []Rule
	trendBand float64
}

// NewRuleSet builds the default rules from thresholds.
func NewRuleSet(t config.Rules, trendBand float64) *RuleSet {
	return &RuleSet{rules: DefaultRules(t), trendBand: trendBand}
}

// NewRuleSetWith evaluates the given rules in the given order.
func NewRuleSetWith(trendBand float64, rules ...Rule) *RuleSet {
	return &RuleSet{rules: rules, trendBand: trendBand}
}

// Rules returns the ids in evaluation order.
func (rs *RuleSet) Rules() []string {
	ids := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		ids[i] = r.ID
	}
	return ids
}

// Evaluate runs every rule and stable-sorts the signals by severity, highest first.
func (rs *RuleSet) Evaluate(snap models.IndicatorSnapshot, score int, now time.Time) []models.Signal {
	in := RuleInput{Snap: snap, Score: score, Trend: snap.Price.Trend(rs.trendBand)}

	signals := make([]models.Signal, 0, len(rs.rules))
	for _, r := range rs.rules {
		sig, ok := r.Check(in)
		if !ok {
			continue
		}
		sig.Rule = r.ID
		sig.ProducedAt = now
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Severity > signals[j].Severity
	})
	return signals
}

// DefaultRules is the standard rule list in evaluation order.
func DefaultRules(t config.Rules) []Rule {
	return []Rule{
		{ID: RuleCrowdedLong, Check: func(in RuleInput) (models.Signal, bool) {
			f, oi := in.Snap.Funding.Rate, in.Snap.OpenInterest.ChangePercent
			if f > t.CrowdedLongFunding && oi > t.CrowdedLongOIChange {
				return models.Signal{
					Kind:        models.SignalWarning,
					Severity:    models.SeverityHigh,
					Title:       "Crowded longs",
					Description: fmt.Sprintf("funding %.4f%% with open interest up %.2f%%, long squeeze risk", f*100, oi),
				}, true
			}
			return models.Signal{}, false
		}},
		{ID: RuleFlowDumpLow, Check: func(in RuleInput) (models.Signal, bool) {
			delta := in.Snap.OrderFlow.Delta
			if delta < t.DumpFlowDelta && in.Snap.Price.NearLow(t.NearLowPercent) {
				return models.Signal{
					Kind:        models.SignalBearish,
					Severity:    models.SeverityHigh,
					Title:       "Heavy selling at the lows",
					Description: fmt.Sprintf("net taker flow %.0f within %.1f%% of the 24h low %.2f", delta, t.NearLowPercent, in.Snap.Price.Low24h),
				}, true
			}
			return models.Signal{}, false
		}},
		{ID: RuleShortSqueeze, Check: func(in RuleInput) (models.Signal, bool) {
			f, oi := in.Snap.Funding.Rate, in.Snap.OpenInterest.ChangePercent
			if f < t.SqueezeFunding && oi > t.SqueezeOIChange {
				return models.Signal{
					Kind:        models.SignalBullish,
					Severity:    models.SeverityMedium,
					Title:       "Short squeeze risk",
					Description: fmt.Sprintf("negative funding %.4f%% while open interest grows %.2f%%", f*100, oi),
				}, true
			}
			return models.Signal{}, false
		}},
		{ID: RuleLongShortEdge, Check: func(in RuleInput) (models.Signal, bool) {
			r := in.Snap.LongShort.Ratio
			switch {
			case r > t.ExtremeLongRatio:
				return models.Signal{
					Kind:        models.SignalWarning,
					Severity:    models.SeverityMedium,
					Title:       "Extreme long positioning",
					Description: fmt.Sprintf("long/short ratio %.2f above %.2f, contrarian downside risk", r, t.ExtremeLongRatio),
				}, true
			case r > 0 && r < t.ExtremeShortRatio:
				return models.Signal{
					Kind:        models.SignalBullish,
					Severity:    models.SeverityMedium,
					Title:       "Extreme short positioning",
					Description: fmt.Sprintf("long/short ratio %.2f below %.2f, contrarian upside", r, t.ExtremeShortRatio),
				}, true
			}
			return models.Signal{}, false
		}},
		{ID: RuleBreakout, Check: func(in RuleInput) (models.Signal, bool) {
			delta := in.Snap.OrderFlow.Delta
			if in.Snap.Price.AtOrAboveHigh() && delta > t.BreakoutFlowDelta {
				return models.Signal{
					Kind:        models.SignalBullish,
					Severity:    models.SeverityMedium,
					Title:       "Breakout with buying",
					Description: fmt.Sprintf("price %.2f at the 24h high with net taker flow %.0f", in.Snap.Price.Current, delta),
				}, true
			}
			return models.Signal{}, false
		}},
		{ID: RuleDistribution, Check: func(in RuleInput) (models.Signal, bool) {
			flow := in.Snap.OrderFlow
			share, total := flow.SellShare(), flow.TotalNotional()
			if share > t.DistributionSellShare && total > t.DistributionFloor {
				return models.Signal{
					Kind:        models.SignalBearish,
					Severity:    models.SeverityHigh,
					Title:       "Distribution alert",
					Description: fmt.Sprintf("sellers take %.1f%% of %.0f traded notional", share, total),
				}, true
			}
			return models.Signal{}, false
		}},
		{ID: RuleBullTrap, Check: func(in RuleInput) (models.Signal, bool) {
			oi := in.Snap.OpenInterest.ChangePercent
			if in.Trend == models.TrendUp && oi < t.DivergenceOIChange {
				return models.Signal{
					Kind:        models.SignalWarning,
					Severity:    models.SeverityHigh,
					Title:       "Rally without open interest",
					Description: fmt.Sprintf("price rising while open interest falls %.2f%%, short covering rather than new longs", oi),
				}, true
			}
			return models.Signal{}, false
		}},
		{ID: RuleBearExhausted, Check: func(in RuleInput) (models.Signal, bool) {
			oi := in.Snap.OpenInterest.ChangePercent
			if in.Trend == models.TrendDown && oi < t.DivergenceOIChange {
				return models.Signal{
					Kind:        models.SignalBullish,
					Severity:    models.SeverityMedium,
					Title:       "Selling exhaustion",
					Description: fmt.Sprintf("price falling while open interest drops %.2f%%, longs capitulating", oi),
				}, true
			}
			return models.Signal{}, false
		}},
	}
}

var _ domsvc.RuleEngine = (*RuleSet)(nil)
