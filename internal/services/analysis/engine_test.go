package analysis

import (
	"testing"

	"Sentinel/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_CrowdedLongForcesWait(t *testing.T) {
	cfg := defaultConfig(t)
	e := NewEngine(cfg)

	snap := snapshotWith(0.0004, 12, 1.8, 9_000_000, 6)
	snap.Price.Current = 106
	snap.Price.AbsoluteChange = 6

	res := e.Evaluate(snap, evalTime)

	// 1.2 + 20 + 16 + 13.5 + 15: strongly bullish on its own
	assert.GreaterOrEqual(t, res.Score, 50)
	require.NotEmpty(t, res.Signals)
	assert.Equal(t, RuleCrowdedLong, res.Signals[0].Rule)
	assert.Equal(t, models.ActionWait, res.Action)
	assert.InDelta(t, 80, res.Confidence, 1e-9)
	assert.Equal(t, ReasonHighRisk, res.Reason)
}

func TestEngine_NegativeFundingWithRisingOI(t *testing.T) {
	e := NewEngine(defaultConfig(t))

	res := e.Evaluate(snapshotWith(-0.0002, 6, 1.0, 0, 0), evalTime)

	assert.Equal(t, 11, res.Score)
	assert.Equal(t, models.ActionWait, res.Action)
	assert.InDelta(t, 60, res.Confidence, 1e-9)
	assert.Equal(t, ReasonUnclear, res.Reason)
}

func TestEngine_ResultMetadata(t *testing.T) {
	e := NewEngine(defaultConfig(t))
	snap := snapshotWith(0, 0, 1, 0, 0)

	first := e.Evaluate(snap, evalTime)
	second := e.Evaluate(snap, evalTime)

	assert.Equal(t, models.ModelComposite, first.Model)
	assert.Equal(t, "BTCUSDT", first.Symbol)
	assert.Equal(t, evalTime, first.GeneratedAt)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotNil(t, first.Signals)
}

func TestEngine_TacticalModelSelected(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Analysis.Model = models.ModelTactical
	e := NewEngine(cfg)

	res := e.Evaluate(withTrend(snapshotWith(-0.0002, 6, 1, 0, 0), models.TrendUp), evalTime)

	assert.Equal(t, models.ModelTactical, e.Model())
	assert.Equal(t, models.ModelTactical, res.Model)
	assert.Equal(t, 85, res.Score)
	assert.Equal(t, models.ActionLong, res.Action)
	assert.InDelta(t, 85, res.Confidence, 1e-9)
	assert.Contains(t, ruleIDs(res.Signals), RuleShortSqueeze)
}
