package service

import (
	"time"

	"Sentinel/internal/domain/models"
)

// ScoreAggregator maps a snapshot to a bounded composite score.
type ScoreAggregator interface {
	Score(snap models.IndicatorSnapshot) int
}

// RuleEngine raises advisory signals, ranked by severity.
type RuleEngine interface {
	Evaluate(snap models.IndicatorSnapshot, score int, now time.Time) []models.Signal
}

// Classifier turns a score and its signals into an action.
type Classifier interface {
	Classify(score int, signals []models.Signal) models.Recommendation
}

// Evaluator runs one full analysis over a snapshot.
type Evaluator interface {
	Evaluate(snap models.IndicatorSnapshot, now time.Time) models.AnalysisResult
	Model() string
}
