package models

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOIChangePercent(t *testing.T) {
	assert.Zero(t, OIChangePercent(100, 0))
	assert.Zero(t, OIChangePercent(100, -5))
	assert.Zero(t, OIChangePercent(100, math.NaN()))
	assert.InDelta(t, 12, OIChangePercent(112, 100), 1e-9)
	assert.InDelta(t, -25, OIChangePercent(75, 100), 1e-9)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		cur, prev := rng.Float64()*1e6, rng.Float64()*1e6+1
		assert.InDelta(t, (cur-prev)/prev*100, OIChangePercent(cur, prev), 1e-9)
	}
}

func TestNextOpenInterest(t *testing.T) {
	first := NextOpenInterest(OpenInterestState{}, 80_000)
	assert.Equal(t, 80_000.0, first.Current)
	assert.Equal(t, 80_000.0, first.Previous)
	assert.Zero(t, first.ChangePercent)

	second := NextOpenInterest(first, 88_000)
	assert.Equal(t, 80_000.0, second.Previous)
	assert.InDelta(t, 10, second.ChangePercent, 1e-9)
}

func TestLongShortSplit(t *testing.T) {
	long, short := LongShortSplit(1)
	assert.InDelta(t, 50, long, 1e-9)
	assert.InDelta(t, 50, short, 1e-9)

	long, short = LongShortSplit(3)
	assert.InDelta(t, 75, long, 1e-9)
	assert.InDelta(t, 25, short, 1e-9)

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		long, short = LongShortSplit(bad)
		assert.Zero(t, long)
		assert.Zero(t, short)
	}

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		r := rng.Float64()*10 + 1e-6
		long, short = LongShortSplit(r)
		require.InDelta(t, 100, long+short, 1e-9, "ratio %v", r)
	}
}

func TestSummarizeOrderFlow(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	trades := []Trade{
		{Time: base, Price: 100, Quantity: 60, IsSell: false},
		{Time: base.Add(time.Second), Price: 100, Quantity: 2, IsSell: true},
		{Time: base.Add(2 * time.Second), Price: 101, Quantity: 50, IsSell: true},
		{Time: base.Add(3 * time.Second), Price: 99, Quantity: 1, IsSell: false},
	}

	flow := SummarizeOrderFlow(trades, 50)

	assert.InDelta(t, 6000+99, flow.BuyNotional, 1e-9)
	assert.InDelta(t, 200+5050, flow.SellNotional, 1e-9)
	assert.Equal(t, 2, flow.BuyCount)
	assert.Equal(t, 2, flow.SellCount)
	assert.InDelta(t, flow.BuyNotional-flow.SellNotional, flow.Delta, 1e-9)
	require.Len(t, flow.LargeTrades, 2)
	assert.Equal(t, 50.0, flow.LargeTrades[0].Quantity, "newest large trade first")
	assert.Equal(t, 60.0, flow.LargeTrades[1].Quantity)
}

func TestOrderFlowSellShare(t *testing.T) {
	assert.Zero(t, OrderFlowState{}.SellShare())
	assert.InDelta(t, 75, OrderFlowState{BuyNotional: 1, SellNotional: 3}.SellShare(), 1e-9)
}

func TestPriceTrend(t *testing.T) {
	assert.Equal(t, TrendUp, PriceState{Current: 100.2, AbsoluteChange: 0.2}.Trend(0.1))
	assert.Equal(t, TrendDown, PriceState{Current: 99.8, AbsoluteChange: -0.2}.Trend(0.1))
	assert.Equal(t, TrendFlat, PriceState{Current: 100.05, AbsoluteChange: 0.05}.Trend(0.1))
	assert.Equal(t, TrendFlat, PriceState{}.Trend(0.1))
}

func TestPriceLevels(t *testing.T) {
	p := PriceState{Current: 100.9, High24h: 120, Low24h: 100}
	assert.True(t, p.NearLow(1))
	assert.False(t, PriceState{Current: 101.5, Low24h: 100}.NearLow(1))
	assert.False(t, PriceState{Current: 10}.NearLow(1))

	assert.True(t, PriceState{Current: 120, High24h: 120}.AtOrAboveHigh())
	assert.False(t, PriceState{Current: 120}.AtOrAboveHigh())
}

func TestSnapshotClone(t *testing.T) {
	top := 1.4
	orig := IndicatorSnapshot{
		LongShort: LongShortState{Ratio: 1.2, TopTraderRatio: &top},
		OrderFlow: OrderFlowState{LargeTrades: []Trade{{Quantity: 70}}},
	}

	cp := orig.Clone()
	*cp.LongShort.TopTraderRatio = 9
	cp.OrderFlow.LargeTrades[0].Quantity = 1

	assert.Equal(t, 1.4, *orig.LongShort.TopTraderRatio)
	assert.Equal(t, 70.0, orig.OrderFlow.LargeTrades[0].Quantity)
}

func TestAnalysisResultClone(t *testing.T) {
	quiet := AnalysisResult{ID: "q", Action: ActionWait, Signals: []Signal{}}
	b, err := json.Marshal(quiet.Clone())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"signals":[]`)

	restored := AnalysisResult{ID: "r"}
	assert.NotNil(t, restored.Clone().Signals)

	loud := AnalysisResult{Signals: []Signal{{Rule: "a"}}}
	cp := loud.Clone()
	cp.Signals[0].Rule = "b"
	assert.Equal(t, "a", loud.Signals[0].Rule)
}
