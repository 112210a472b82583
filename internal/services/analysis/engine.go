package analysis

import (
	"math"
	"time"

	"Sentinel/internal/domain/models"
	domsvc "Sentinel/internal/domain/service"
	"Sentinel/pkg/config"

	"github.com/google/uuid"
)

// Engine runs aggregator, rule engine and classifier in sequence. It holds no state between cycles.
type Engine struct {
	model      string
	scorer     domsvc.ScoreAggregator
	rules      domsvc.RuleEngine
	classifier domsvc.Classifier
}

// NewEngine builds the engine for the configured model. Exactly one model is active.
func NewEngine(cfg *config.Config) *Engine {
	a := cfg.Analysis
	rules := NewRuleSet(a.Rules, a.TrendBand)

	if a.Model == models.ModelTactical {
		t := NewTacticalModel(a.Tactical, a.TrendBand)
		return NewEngineWith(models.ModelTactical, t, rules, t)
	}
	return NewEngineWith(models.ModelComposite, NewCompositeScorer(a.Scoring), rules, NewThresholdClassifier(a.Classifier))
}

// NewEngineWith assembles an engine from explicit parts.
func NewEngineWith(model string, scorer domsvc.ScoreAggregator, rules domsvc.RuleEngine, classifier domsvc.Classifier) *Engine {
	return &Engine{model: model, scorer: scorer, rules: rules, classifier: classifier}
}

func (e *Engine) Model() string { return e.model }

// Evaluate produces a fresh result for snap.
func (e *Engine) Evaluate(snap models.IndicatorSnapshot, now time.Time) models.AnalysisResult {
	score := e.scorer.Score(snap)
	signals := e.rules.Evaluate(snap, score, now)
	rec := e.classifier.Classify(score, signals)

	return models.AnalysisResult{
		ID:          uuid.NewString(),
		Symbol:      snap.Symbol,
		Model:       e.model,
		Score:       score,
		Action:      rec.Action,
		Confidence:  clampConfidence(rec.Confidence),
		Reason:      rec.Reason,
		Signals:     signals,
		GeneratedAt: now,
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

var _ domsvc.Evaluator = (*Engine)(nil)
