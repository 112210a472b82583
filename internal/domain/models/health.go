package models

import "time"

// IndicatorHealth tells how fresh one indicator family is and how its polling has gone.
type IndicatorHealth struct {
	Family              Family        `json:"family"`
	LastUpdated         time.Time     `json:"last_updated"`
	LastAttempt         time.Time     `json:"last_attempt"`
	Age                 time.Duration `json:"age_ns"`
	Stale               bool          `json:"stale"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastError           string        `json:"last_error,omitempty"`
}

// HealthReport is the health of every family plus an overall flag.
type HealthReport struct {
	Symbol     string            `json:"symbol"`
	Degraded   bool              `json:"degraded"`
	Indicators []IndicatorHealth `json:"indicators"`
	CheckedAt  time.Time         `json:"checked_at"`
}
