package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Sentinel/internal/domain/models"
	domrepo "Sentinel/internal/domain/repository"
	applogger "Sentinel/pkg/logger"
)

var (
	ErrPipelineStopped = errors.New("pipeline stopped")
	ErrInvalidResult   = errors.New("invalid analysis result")
)

// ResultPipeline sits between the analysis cycle and the sinks.
// Submit never blocks; a single worker publishes in order, retrying with backoff.
// When the buffer is full the oldest queued result is dropped, since a newer one supersedes it.
type ResultPipeline struct {
	sink        domrepo.ResultPublisher
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	bufSize     int
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration
	timeout     time.Duration

	bufCh   chan *models.AnalysisResult
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
	stopped bool
}

type PipelineOption func(*ResultPipeline)

// WithBufferSize sets how many results may wait for the sink.
func WithBufferSize(n int) PipelineOption {
	return func(p *ResultPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetry sets the attempt budget and the backoff bounds.
func WithRetry(maxAttempts int, lo, hi time.Duration) PipelineOption {
	return func(p *ResultPipeline) {
		if maxAttempts > 0 {
			p.maxAttempts = maxAttempts
		}
		if lo > 0 {
			p.backoffMin = lo
		}
		if hi >= p.backoffMin {
			p.backoffMax = hi
		}
	}
}

// WithPublishTimeout bounds each sink call.
func WithPublishTimeout(d time.Duration) PipelineOption {
	return func(p *ResultPipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewResultPipeline(sink domrepo.ResultPublisher, metrics domrepo.Metrics, logger *applogger.Logger, opts ...PipelineOption) *ResultPipeline {
	p := &ResultPipeline{
		sink:        sink,
		metrics:     metrics,
		logger:      logger,
		bufSize:     64,
		maxAttempts: 5,
		backoffMin:  50 * time.Millisecond,
		backoffMax:  2 * time.Second,
		timeout:     5 * time.Second,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.AnalysisResult, p.bufSize)
	return p
}

// Submit validates res and queues it for delivery.
func (p *ResultPipeline) Submit(res *models.AnalysisResult) error {
	if err := validateResult(res); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPipelineStopped
	}

	for {
		select {
		case p.bufCh <- res:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
			return nil
		default:
		}
		select {
		case old := <-p.bufCh:
			p.metrics.RecordError("pipeline_superseded")
			p.logger.Debug("dropped queued result", applogger.String("id", old.ID))
		default:
		}
	}
}

// Len is the number of queued results.
func (p *ResultPipeline) Len() int {
	return len(p.bufCh)
}

// Start launches the delivery worker.
func (p *ResultPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *ResultPipeline) run(ctx context.Context) {
	defer close(p.doneCh)
	for {
		select {
		case <-p.stopCh:
			p.drain(ctx)
			return
		case <-ctx.Done():
			return
		case res := <-p.bufCh:
			p.deliver(ctx, res)
		}
	}
}

func (p *ResultPipeline) deliver(ctx context.Context, res *models.AnalysisResult) {
	backoff := p.backoffMin
	for attempt := 1; ; attempt++ {
		start := time.Now()
		err := p.publish(ctx, res)
		if err == nil {
			p.metrics.RecordLatency("pipeline_publish", time.Since(start).Seconds())
			return
		}
		p.metrics.RecordError("pipeline_publish")

		if attempt >= p.maxAttempts {
			p.metrics.RecordError("pipeline_drop")
			p.logger.Warn("dropping analysis result after retries",
				applogger.String("id", res.ID),
				applogger.Int("attempts", attempt),
				applogger.Error(err),
			)
			return
		}
		if len(p.bufCh) > 0 {
			p.metrics.RecordError("pipeline_superseded")
			return
		}

		select {
		case <-time.After(backoff):
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
		if backoff *= 2; backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
}

func (p *ResultPipeline) publish(ctx context.Context, res *models.AnalysisResult) error {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.sink.Publish(pctx, res)
}

// drain makes one attempt for each result still queued.
func (p *ResultPipeline) drain(ctx context.Context) {
	for {
		select {
		case res := <-p.bufCh:
			if err := p.publish(ctx, res); err != nil {
				p.metrics.RecordError("pipeline_drop")
			}
		default:
			return
		}
	}
}

// Stop rejects new results, flushes what is queued and waits for the worker until ctx expires.
func (p *ResultPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	if !started {
		return nil
	}
	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline stop: %w", ctx.Err())
	}
}

func validateResult(r *models.AnalysisResult) error {
	if r == nil {
		return fmt.Errorf("%w: nil", ErrInvalidResult)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidResult)
	}
	if !r.Action.Valid() {
		return fmt.Errorf("%w: action %q", ErrInvalidResult, r.Action)
	}
	if r.Score < -100 || r.Score > 100 {
		return fmt.Errorf("%w: score %d out of range", ErrInvalidResult, r.Score)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidResult, r.Confidence)
	}
	return nil
}
