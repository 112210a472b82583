package repository

// Period is the aggregation window of the exchange's long/short ratio statistics.
type Period string

const (
	Period5m  Period = "5m"
	Period15m Period = "15m"
	Period30m Period = "30m"
	Period1h  Period = "1h"
	Period2h  Period = "2h"
	Period4h  Period = "4h"
	Period6h  Period = "6h"
	Period12h Period = "12h"
	Period1d  Period = "1d"
)

// IsValidPeriod returns true if p is a supported window.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period5m, Period15m, Period30m, Period1h, Period2h, Period4h, Period6h, Period12h, Period1d:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default window.
func DefaultPeriod() Period { return Period5m }

// NormalizePeriod converts raw string to a valid window (or default).
func NormalizePeriod(s string) Period {
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}
