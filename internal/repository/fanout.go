package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
)

// FanoutPublisher sends each result to every sink concurrently.
// Sinks are independent: one failing does not stop the others.
type FanoutPublisher struct {
	sinks map[string]drepo.ResultPublisher
	order []string
}

var _ drepo.ResultPublisher = (*FanoutPublisher)(nil)

func NewFanoutPublisher() *FanoutPublisher {
	return &FanoutPublisher{sinks: make(map[string]drepo.ResultPublisher)}
}

// Add registers a named sink. A nil sink is ignored.
func (f *FanoutPublisher) Add(name string, sink drepo.ResultPublisher) *FanoutPublisher {
	if sink == nil {
		return f
	}
	if _, ok := f.sinks[name]; !ok {
		f.order = append(f.order, name)
	}
	f.sinks[name] = sink
	return f
}

// Sinks returns the sink names in registration order.
func (f *FanoutPublisher) Sinks() []string {
	return append([]string(nil), f.order...)
}

func (f *FanoutPublisher) Publish(ctx context.Context, res *models.AnalysisResult) error {
	errs := make([]error, len(f.order))
	var wg sync.WaitGroup
	for i, name := range f.order {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			if err := f.sinks[name].Publish(ctx, res); err != nil {
				errs[i] = fmt.Errorf("%s: %w", name, err)
			}
		}(i, name)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (f *FanoutPublisher) Close() error {
	errs := make([]error, 0, len(f.order))
	for _, name := range f.order {
		if err := f.sinks[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
