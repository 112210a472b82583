package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Sentinel/internal/domain/models"
	applogger "Sentinel/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	published []string
	failures  int // fail this many calls before succeeding
	calls     int
	closed    bool
}

func (s *recordingSink) Publish(_ context.Context, res *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.published = append(s.published, res.ID)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func (s *recordingSink) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.published...), s.calls
}

type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *countingMetrics) RecordFetch(models.Family, float64, error) {}
func (m *countingMetrics) RecordIndicatorAge(models.Family, time.Duration, bool) {}
func (m *countingMetrics) RecordAnalysis(*models.AnalysisResult, float64) {}
func (m *countingMetrics) RecordLatency(string, float64) {}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

func (m *countingMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func result(id string) *models.AnalysisResult {
	return &models.AnalysisResult{ID: id, Action: models.ActionWait, Confidence: 60}
}

func TestResultPipeline_Validate(t *testing.T) {
	p := NewResultPipeline(&recordingSink{}, &countingMetrics{}, applogger.Nop())

	assert.ErrorIs(t, p.Submit(nil), ErrInvalidResult)
	assert.ErrorIs(t, p.Submit(&models.AnalysisResult{Action: models.ActionWait}), ErrInvalidResult)
	assert.ErrorIs(t, p.Submit(&models.AnalysisResult{ID: "x", Action: "HOLD"}), ErrInvalidResult)
	assert.ErrorIs(t, p.Submit(&models.AnalysisResult{ID: "x", Action: models.ActionLong, Score: 101}), ErrInvalidResult)
	assert.NoError(t, p.Submit(result("ok")))
}

func TestResultPipeline_DropsOldestWhenFull(t *testing.T) {
	m := &countingMetrics{}
	p := NewResultPipeline(&recordingSink{}, m, applogger.Nop(), WithBufferSize(2))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.Submit(result(id)))
	}

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 1, m.count("pipeline_superseded"))
	assert.Equal(t, "b", (<-p.bufCh).ID)
	assert.Equal(t, "c", (<-p.bufCh).ID)
}

func TestResultPipeline_RetriesThenDelivers(t *testing.T) {
	sink := &recordingSink{failures: 2}
	m := &countingMetrics{}
	p := NewResultPipeline(sink, m, applogger.Nop(), WithRetry(5, time.Millisecond, 4*time.Millisecond))
	p.Start(context.Background())
	defer func() { _ = p.Stop(context.Background()) }()

	require.NoError(t, p.Submit(result("r1")))

	require.Eventually(t, func() bool {
		published, _ := sink.snapshot()
		return len(published) == 1
	}, 2*time.Second, 5*time.Millisecond)
	_, calls := sink.snapshot()
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, m.count("pipeline_publish"))
	assert.Zero(t, m.count("pipeline_drop"))
}

func TestResultPipeline_DropsAfterMaxAttempts(t *testing.T) {
	sink := &recordingSink{failures: 100}
	m := &countingMetrics{}
	p := NewResultPipeline(sink, m, applogger.Nop(), WithRetry(3, time.Millisecond, time.Millisecond))
	p.Start(context.Background())
	defer func() { _ = p.Stop(context.Background()) }()

	require.NoError(t, p.Submit(result("doomed")))

	require.Eventually(t, func() bool { return m.count("pipeline_drop") == 1 }, 2*time.Second, 5*time.Millisecond)
	_, calls := sink.snapshot()
	assert.Equal(t, 3, calls)
}

func TestResultPipeline_StopFlushesAndRejects(t *testing.T) {
	sink := &recordingSink{}
	p := NewResultPipeline(sink, &countingMetrics{}, applogger.Nop())
	require.NoError(t, p.Submit(result("queued")))

	p.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))

	published, _ := sink.snapshot()
	assert.Equal(t, []string{"queued"}, published)
	assert.ErrorIs(t, p.Submit(result("late")), ErrPipelineStopped)
	assert.NoError(t, p.Stop(ctx))
}
