package analysis

import (
	"fmt"
	"math"

	"Sentinel/internal/domain/models"
	domsvc "Sentinel/internal/domain/service"
	"Sentinel/pkg/config"
)

const (
	ReasonHighRisk = "high-risk signal present"
	ReasonUnclear  = "direction unclear"
)

// ThresholdClassifier maps the composite score to an action, unless a high-severity warning vetoes it.
type ThresholdClassifier struct {
	cfg config.Classifier
}

func NewThresholdClassifier(cfg config.Classifier) *ThresholdClassifier {
	return &ThresholdClassifier{cfg: cfg}
}

func (c *ThresholdClassifier) Classify(score int, signals []models.Signal) models.Recommendation {
	if hasHighWarning(signals) {
		return models.Recommendation{
			Action:     models.ActionWait,
			Confidence: c.cfg.WarningConfidence,
			Reason:     ReasonHighRisk,
		}
	}

	s := float64(score)
	switch {
	case score >= c.cfg.LongScore:
		return models.Recommendation{
			Action:     models.ActionLong,
			Confidence: math.Min(c.cfg.BaseConfidence+s/2, c.cfg.MaxConfidence),
			Reason:     fmt.Sprintf("composite score %d at or above %d", score, c.cfg.LongScore),
		}
	case score <= c.cfg.ShortScore:
		return models.Recommendation{
			Action:     models.ActionShort,
			Confidence: math.Min(c.cfg.BaseConfidence-s/2, c.cfg.MaxConfidence),
			Reason:     fmt.Sprintf("composite score %d at or below %d", score, c.cfg.ShortScore),
		}
	default:
		return models.Recommendation{
			Action:     models.ActionWait,
			Confidence: c.cfg.UnclearConfidence,
			Reason:     ReasonUnclear,
		}
	}
}

func hasHighWarning(signals []models.Signal) bool {
	for _, s := range signals {
		if s.Kind == models.SignalWarning && s.Severity >= models.SeverityHigh {
			return true
		}
	}
	return false
}

var _ domsvc.Classifier = (*ThresholdClassifier)(nil)
