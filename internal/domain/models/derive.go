package models

import (
	"math"
	"sort"
)

// OIChangePercent is (current-previous)/previous*100, or 0 when previous is not positive.
func OIChangePercent(current, previous float64) float64 {
	if previous <= 0 || math.IsNaN(previous) || math.IsNaN(current) {
		return 0
	}
	return (current - previous) / previous * 100
}

// NextOpenInterest folds a freshly fetched value into the prior state.
// The first reading becomes its own baseline so the change starts at 0.
func NextOpenInterest(prior OpenInterestState, value float64) OpenInterestState {
	previous := prior.Current
	if previous <= 0 {
		previous = value
	}
	return OpenInterestState{
		Current:       value,
		Previous:      previous,
		ChangePercent: OIChangePercent(value, previous),
	}
}

// LongShortSplit converts an account ratio into long and short percentages.
// Ratios that are not positive and finite yield (0, 0).
func LongShortSplit(ratio float64) (longPct, shortPct float64) {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, 0
	}
	return ratio / (ratio + 1) * 100, 1 / (ratio + 1) * 100
}

// SummarizeOrderFlow partitions trades by taker side and keeps those at or above largeQty.
func SummarizeOrderFlow(trades []Trade, largeQty float64) OrderFlowState {
	var out OrderFlowState
	for _, t := range trades {
		n := t.Notional()
		if t.IsSell {
			out.SellNotional += n
			out.SellCount++
		} else {
			out.BuyNotional += n
			out.BuyCount++
		}
		if t.Quantity >= largeQty {
			out.LargeTrades = append(out.LargeTrades, t)
		}
	}
	out.Delta = out.BuyNotional - out.SellNotional
	sort.SliceStable(out.LargeTrades, func(i, j int) bool {
		return out.LargeTrades[i].Time.After(out.LargeTrades[j].Time)
	})
	return out
}

// TotalNotional is buy plus sell notional.
func (o OrderFlowState) TotalNotional() float64 { return o.BuyNotional + o.SellNotional }

// SellShare is the sell side's percentage of total notional, 0 with no volume.
func (o OrderFlowState) SellShare() float64 {
	total := o.TotalNotional()
	if total <= 0 {
		return 0
	}
	return o.SellNotional / total * 100
}

// Trend is the direction of price against the 24h open.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// Open reconstructs the 24h open from the last price and its absolute change.
func (p PriceState) Open() float64 { return p.Current - p.AbsoluteChange }

// Trend compares the last price to the 24h open; moves within bandPct percent are flat.
func (p PriceState) Trend(bandPct float64) Trend {
	open := p.Open()
	if open <= 0 || p.Current <= 0 {
		return TrendFlat
	}
	move := (p.Current - open) / open * 100
	switch {
	case move > bandPct:
		return TrendUp
	case move < -bandPct:
		return TrendDown
	default:
		return TrendFlat
	}
}

// NearLow reports whether the last price is within pct percent above the 24h low.
func (p PriceState) NearLow(pct float64) bool {
	if p.Low24h <= 0 || p.Current <= 0 {
		return false
	}
	return p.Current <= p.Low24h*(1+pct/100)
}

// AtOrAboveHigh reports whether the last price has reached the 24h high.
func (p PriceState) AtOrAboveHigh() bool {
	return p.High24h > 0 && p.Current >= p.High24h
}

// RangePosition is where the last price sits in the 24h range, 0 at the low and 100 at the high.
func (p PriceState) RangePosition() float64 {
	span := p.High24h - p.Low24h
	if span <= 0 || p.Low24h <= 0 {
		return 0
	}
	pos := (p.Current - p.Low24h) / span * 100
	return math.Max(0, math.Min(100, pos))
}
