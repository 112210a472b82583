package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
	"Sentinel/pkg/cache"
)

// ResultStore keeps the latest analysis result per symbol in the cache, with a TTL
// so an old result expires instead of being served as current.
type ResultStore struct {
	cache cache.Service
	ttl   time.Duration
}

var (
	_ drepo.ResultPublisher = (*ResultStore)(nil)
	_ drepo.ResultLoader    = (*ResultStore)(nil)
)

func NewResultStore(c cache.Service, ttl time.Duration) *ResultStore {
	return &ResultStore{cache: c, ttl: ttl}
}

func resultKey(symbol string) string {
	return cache.Key(symbol, "analysis")
}

func (s *ResultStore) Publish(ctx context.Context, res *models.AnalysisResult) error {
	if err := s.cache.Set(ctx, resultKey(res.Symbol), res, s.ttl); err != nil {
		return fmt.Errorf("store result %s: %w", res.ID, err)
	}
	return nil
}

func (s *ResultStore) LoadLatest(ctx context.Context, symbol string) (*models.AnalysisResult, error) {
	var res models.AnalysisResult
	if err := s.cache.Get(ctx, resultKey(symbol), &res); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, drepo.ErrNoData
		}
		return nil, fmt.Errorf("load result: %w", err)
	}
	return &res, nil
}

func (s *ResultStore) Close() error {
	return s.cache.Close()
}
