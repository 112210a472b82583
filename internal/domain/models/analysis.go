package models

import "time"

type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionWait  Action = "WAIT"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a == ActionLong || a == ActionShort || a == ActionWait
}

// Scoring models.
const (
	ModelComposite = "composite"
	ModelTactical  = "tactical"
)

// AnalysisResult is the decision state of one analysis cycle. It is replaced, never edited.
type AnalysisResult struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Model       string    `json:"model"`
	Score       int       `json:"score"`
	Action      Action    `json:"action"`
	Confidence  float64   `json:"confidence"`
	Reason      string    `json:"reason"`
	Signals     []Signal  `json:"signals"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Clone returns a copy whose signal slice is not shared with r and is never nil,
// so a quiet cycle encodes as "signals": [].
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.Signals = make([]Signal, len(r.Signals))
	copy(out.Signals, r.Signals)
	return out
}

// CountBySeverity counts signals per severity level.
func (r AnalysisResult) CountBySeverity() map[int]int {
	counts := make(map[int]int, 3)
	for _, s := range r.Signals {
		counts[s.Severity]++
	}
	return counts
}

// Recommendation is the classifier's verdict for one cycle.
type Recommendation struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
