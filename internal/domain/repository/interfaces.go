package repository

import (
	"context"
	"errors"
	"time"

	"Sentinel/internal/domain/models"
)

// ErrNoData is returned by a MarketData fetch whose payload was empty.
var ErrNoData = errors.New("market data: no data")

// ErrMalformed marks a payload that parsed but breaks an indicator invariant
// (non-finite number, high below low, non-positive ratio).
var ErrMalformed = errors.New("market data: malformed payload")

// MarketData is the exchange collaborator: one fetch per indicator family.
type MarketData interface {
	Get24hTicker(ctx context.Context, symbol string) (models.Ticker24h, error)
	GetFundingRate(ctx context.Context, symbol string) (models.FundingInfo, error)
	GetOpenInterest(ctx context.Context, symbol string) (float64, error)
	GetLongShortRatio(ctx context.Context, symbol, period string) (models.LongShortReading, error)
	GetRecentTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error)
}

// ResultPublisher delivers analysis results to a downstream sink.
type ResultPublisher interface {
	Publish(ctx context.Context, res *models.AnalysisResult) error
	Close() error
}

// ResultLoader reads back the last stored result, if it has not expired.
type ResultLoader interface {
	LoadLatest(ctx context.Context, symbol string) (*models.AnalysisResult, error)
}

type Metrics interface {
	RecordFetch(family models.Family, seconds float64, err error)
	RecordIndicatorAge(family models.Family, age time.Duration, stale bool)
	RecordAnalysis(res *models.AnalysisResult, seconds float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
