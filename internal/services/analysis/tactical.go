package analysis

import (
	"fmt"
	"math"

	"Sentinel/internal/domain/models"
	domsvc "Sentinel/internal/domain/service"
	"Sentinel/pkg/config"
)

// TacticalModel is the two-factor model: funding direction plus open interest against price trend.
// It scores on a 0..100 scale around a neutral base, reports the score as its confidence
// and carries no warning veto.
type TacticalModel struct {
	cfg       config.Tactical
	trendBand float64
}

func NewTacticalModel(cfg config.Tactical, trendBand float64) *TacticalModel {
	return &TacticalModel{cfg: cfg, trendBand: trendBand}
}

func (m *TacticalModel) Score(snap models.IndicatorSnapshot) int {
	c := m.cfg
	score := c.Base

	switch f := sanitize(snap.Funding.Rate); {
	case f > c.HighFunding:
		score += c.HighFundingAdj
	case f < c.LowFunding:
		score += c.LowFundingAdj
	}

	oi := sanitize(snap.OpenInterest.ChangePercent)
	if math.Abs(oi) > c.OIChange {
		trend := snap.Price.Trend(m.trendBand)
		switch {
		case oi > 0 && trend == models.TrendUp:
			score += c.OIUpTrendUp
		case oi > 0 && trend == models.TrendDown:
			score += c.OIUpTrendDown
		case oi < 0 && trend == models.TrendUp:
			score += c.OIDownTrendUp
		case oi < 0 && trend == models.TrendDown:
			score += c.OIDownTrendDn
		}
	}

	return int(math.Max(0, math.Min(100, float64(score))))
}

func (m *TacticalModel) Classify(score int, _ []models.Signal) models.Recommendation {
	switch {
	case score >= m.cfg.LongScore:
		return models.Recommendation{
			Action:     models.ActionLong,
			Confidence: float64(score),
			Reason:     fmt.Sprintf("tactical score %d at or above %d", score, m.cfg.LongScore),
		}
	case score <= m.cfg.ShortScore:
		return models.Recommendation{
			Action:     models.ActionShort,
			Confidence: float64(score),
			Reason:     fmt.Sprintf("tactical score %d at or below %d", score, m.cfg.ShortScore),
		}
	default:
		return models.Recommendation{
			Action:     models.ActionWait,
			Confidence: float64(score),
			Reason:     ReasonUnclear,
		}
	}
}

var (
	_ domsvc.ScoreAggregator = (*TacticalModel)(nil)
	_ domsvc.Classifier      = (*TacticalModel)(nil)
)
