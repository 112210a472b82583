package analysis

import (
	"math"

	"Sentinel/internal/domain/models"
	domsvc "Sentinel/internal/domain/service"
	"Sentinel/pkg/config"
)

// Public range of the composite score.
const (
	MinScore = -100
	MaxScore = 100
)

// CompositeScorer is the five-channel weighted score.
// Each channel is clamped on its own before the rounded sum is clamped again.
type CompositeScorer struct {
	cfg config.Scoring
}

func NewCompositeScorer(cfg config.Scoring) *CompositeScorer {
	return &CompositeScorer{cfg: cfg}
}

// Channels is the per-indicator contribution to a composite score.
type Channels struct {
	Funding      float64 `json:"funding"`
	OpenInterest float64 `json:"open_interest"`
	LongShort    float64 `json:"long_short"`
	OrderFlow    float64 `json:"order_flow"`
	Price        float64 `json:"price"`
}

// Sum adds the channels without any rounding.
func (c Channels) Sum() float64 {
	return c.Funding + c.OpenInterest + c.LongShort + c.OrderFlow + c.Price
}

// Channels breaks the score of snap down per indicator.
func (s *CompositeScorer) Channels(snap models.IndicatorSnapshot) Channels {
	c := s.cfg
	out := Channels{
		Funding:      clamp(sanitize(snap.Funding.Rate)*100*c.FundingWeight, c.FundingCap),
		OpenInterest: clamp(sanitize(snap.OpenInterest.ChangePercent)*c.OIWeight, c.OICap),
		OrderFlow:    clamp(sanitize(snap.OrderFlow.Delta)/c.FlowScale*c.FlowWeight, c.FlowCap),
		Price:        clamp(sanitize(snap.Price.ChangePercent)*c.PriceWeight, c.PriceCap),
	}
	// a ratio of zero means no reading yet, not an all-short market
	if ratio := sanitize(snap.LongShort.Ratio); ratio > 0 {
		out.LongShort = clamp((ratio-1)*c.LongShortWeight, c.LongShortCap)
	}
	return out
}

func (s *CompositeScorer) Score(snap models.IndicatorSnapshot) int {
	total := math.Round(s.Channels(snap).Sum())
	return int(clamp(total, MaxScore))
}

// sanitize maps NaN to 0; infinities pass through and saturate at the channel cap.
func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// clamp bounds v to [-limit, limit].
func clamp(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-limit, math.Min(limit, v))
}

var _ domsvc.ScoreAggregator = (*CompositeScorer)(nil)
