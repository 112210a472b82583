package analysis

import (
	"math"

	"Sentinel/internal/domain/models"
	"Sentinel/pkg/config"
)

// Open interest and long/short bands used only for labelling.
const (
	oiSpike    = 10.0
	oiIncrease = 5.0
	oiDecrease = -5.0
	oiDump     = -10.0

	lsBullish = 1.5
	lsBearish = 0.5

	flowDominance = 20.0

	sentimentStrong = 50
	sentimentLean   = 20
)

// SnapshotView is the snapshot plus the values a dashboard derives from it.
type SnapshotView struct {
	Snapshot      models.IndicatorSnapshot `json:"snapshot"`
	Trend         models.Trend             `json:"trend"`
	RangePosition float64                  `json:"range_position"`
	LongPercent   float64                  `json:"long_percent"`
	ShortPercent  float64                  `json:"short_percent"`
	SellShare     float64                  `json:"sell_share"`
	FundingStatus string                   `json:"funding_status"`
	OIStatus      string                   `json:"oi_status"`
	LSStatus      string                   `json:"long_short_status"`
	FlowStatus    string                   `json:"order_flow_status"`
	Score         int                      `json:"score"`
	Sentiment     string                   `json:"sentiment"`
	Channels      *Channels                `json:"channels,omitempty"`
}

// Describer derives the dashboard view of a snapshot.
type Describer struct {
	rules     config.Rules
	trendBand float64
	scorer    *CompositeScorer
}

func NewDescriber(cfg *config.Config) *Describer {
	return &Describer{
		rules:     cfg.Analysis.Rules,
		trendBand: cfg.Analysis.TrendBand,
		scorer:    NewCompositeScorer(cfg.Analysis.Scoring),
	}
}

func (d *Describer) Describe(snap models.IndicatorSnapshot) SnapshotView {
	long, short := models.LongShortSplit(snap.LongShort.Ratio)
	ch := d.scorer.Channels(snap)
	score := d.scorer.Score(snap)
	return SnapshotView{
		Snapshot:      snap,
		Trend:         snap.Price.Trend(d.trendBand),
		RangePosition: snap.Price.RangePosition(),
		LongPercent:   long,
		ShortPercent:  short,
		SellShare:     snap.OrderFlow.SellShare(),
		FundingStatus: d.fundingStatus(snap.Funding.Rate),
		OIStatus:      oiStatus(snap.OpenInterest.ChangePercent),
		LSStatus:      d.longShortStatus(snap.LongShort.Ratio),
		FlowStatus:    d.flowStatus(snap.OrderFlow),
		Score:         score,
		Sentiment:     sentiment(score),
		Channels:      &ch,
	}
}

// sentiment labels the composite score in bands of 20 and 50.
func sentiment(score int) string {
	switch {
	case score >= sentimentStrong:
		return "bullish"
	case score >= sentimentLean:
		return "leaning_bullish"
	case score <= -sentimentStrong:
		return "bearish"
	case score <= -sentimentLean:
		return "leaning_bearish"
	default:
		return "neutral"
	}
}

func (d *Describer) fundingStatus(rate float64) string {
	switch {
	case rate >= d.rules.CrowdedLongFunding:
		return "overheated"
	case rate <= d.rules.SqueezeFunding:
		return "crowded_short"
	default:
		return "normal"
	}
}

func oiStatus(change float64) string {
	switch {
	case change >= oiSpike:
		return "spike"
	case change >= oiIncrease:
		return "increase"
	case change <= oiDump:
		return "dump"
	case change <= oiDecrease:
		return "decrease"
	default:
		return "stable"
	}
}

func (d *Describer) longShortStatus(ratio float64) string {
	switch {
	case ratio <= 0:
		return "no_data"
	case ratio >= d.rules.ExtremeLongRatio:
		return "extreme_long"
	case ratio >= lsBullish:
		return "bullish"
	case ratio <= d.rules.ExtremeShortRatio:
		return "extreme_short"
	case ratio <= lsBearish:
		return "bearish"
	default:
		return "neutral"
	}
}

func (d *Describer) flowStatus(flow models.OrderFlowState) string {
	total := flow.TotalNotional()
	if total <= 0 {
		return "no_data"
	}
	strength := math.Abs(flow.Delta) / total * 100
	if strength <= flowDominance {
		return "balanced"
	}
	if flow.SellShare() > d.rules.DistributionSellShare && total > d.rules.DistributionFloor {
		return "distribution"
	}
	if flow.Delta > 0 {
		return "buyers_dominant"
	}
	return "sellers_dominant"
}
