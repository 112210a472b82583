package models

import "time"

type SignalKind string

const (
	SignalBullish SignalKind = "bullish"
	SignalBearish SignalKind = "bearish"
	SignalWarning SignalKind = "warning"
	SignalNeutral SignalKind = "neutral"
)

// Severity levels of a signal.
const (
	SeverityLow    = 1
	SeverityMedium = 2
	SeverityHigh   = 3
)

// Signal is one advisory alert raised by one rule in one analysis cycle.
type Signal struct {
	Rule        string     `json:"rule"`
	Kind        SignalKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    int        `json:"severity"`
	ProducedAt  time.Time  `json:"produced_at"`
}
