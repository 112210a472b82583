package analysis

import (
	"testing"

	"Sentinel/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestDescriber(t *testing.T) {
	d := NewDescriber(defaultConfig(t))

	snap := snapshotWith(0.0004, 12, 2.5, 0, 0)
	snap.Price = models.PriceState{Current: 105, AbsoluteChange: 5, High24h: 110, Low24h: 100}
	snap.OrderFlow = models.OrderFlowState{BuyNotional: 1_000_000, SellNotional: 9_000_000, Delta: -8_000_000}

	v := d.Describe(snap)

	assert.Equal(t, models.TrendUp, v.Trend)
	assert.InDelta(t, 50, v.RangePosition, 1e-9)
	assert.InDelta(t, 100, v.LongPercent+v.ShortPercent, 1e-9)
	assert.InDelta(t, 90, v.SellShare, 1e-9)
	assert.Equal(t, "overheated", v.FundingStatus)
	assert.Equal(t, "spike", v.OIStatus)
	assert.Equal(t, "extreme_long", v.LSStatus)
	assert.Equal(t, "distribution", v.FlowStatus)
	// 1.2 + 20 + 20 - 12 + 0
	assert.Equal(t, 29, v.Score)
	assert.Equal(t, "leaning_bullish", v.Sentiment)
	if assert.NotNil(t, v.Channels) {
		assert.InDelta(t, 20, v.Channels.OpenInterest, 1e-9)
	}
}

func TestDescriber_EmptySnapshot(t *testing.T) {
	v := NewDescriber(defaultConfig(t)).Describe(models.IndicatorSnapshot{})

	assert.Equal(t, models.TrendFlat, v.Trend)
	assert.Zero(t, v.LongPercent)
	assert.Zero(t, v.ShortPercent)
	assert.Equal(t, "normal", v.FundingStatus)
	assert.Equal(t, "stable", v.OIStatus)
	assert.Equal(t, "no_data", v.LSStatus)
	assert.Equal(t, "no_data", v.FlowStatus)
	assert.Equal(t, "neutral", v.Sentiment)
}

func TestSentimentBands(t *testing.T) {
	for score, want := range map[int]string{
		100: "bullish", 50: "bullish", 49: "leaning_bullish", 20: "leaning_bullish",
		19: "neutral", 0: "neutral", -19: "neutral",
		-20: "leaning_bearish", -49: "leaning_bearish", -50: "bearish", -100: "bearish",
	} {
		assert.Equal(t, want, sentiment(score), "score %d", score)
	}
}
