package metrics

import (
	"errors"
	"strconv"
	"time"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentinel"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	indicatorAge   *prometheus.GaugeVec
	indicatorStale *prometheus.GaugeVec
	score          prometheus.Gauge
	confidence     prometheus.Gauge
	action         *prometheus.GaugeVec
	signals        *prometheus.GaugeVec
	analysisTime   prometheus.Histogram
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

var _ drepo.Metrics = (*Recorder)(nil)

// New registers the recorder's collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Exchange fetches by indicator family and result",
			},
			[]string{"family", "result"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of exchange fetches",
				Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"family"},
		),
		indicatorAge: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "indicator_age_seconds",
				Help:      "Seconds since the indicator family was last updated",
			},
			[]string{"family"},
		),
		indicatorStale: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "indicator_stale",
				Help:      "1 when the indicator family is stale",
			},
			[]string{"family"},
		),
		score: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_score",
			Help:      "Score of the latest analysis",
		}),
		confidence: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_confidence",
			Help:      "Confidence of the latest recommendation",
		}),
		action: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "analysis_action",
				Help:      "1 for the action of the latest recommendation, 0 otherwise",
			},
			[]string{"action"},
		),
		signals: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "analysis_signals",
				Help:      "Signals in the latest analysis by severity",
			},
			[]string{"severity"},
		),
		analysisTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of one analysis cycle",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch counts one fetch. Empty answers are counted apart from failures.
func (r *Recorder) RecordFetch(family models.Family, seconds float64, err error) {
	result := "ok"
	switch {
	case errors.Is(err, drepo.ErrNoData):
		result = "no_data"
	case err != nil:
		result = "error"
	}
	r.fetchTotal.WithLabelValues(string(family), result).Inc()
	r.fetchDuration.WithLabelValues(string(family)).Observe(seconds)
}

func (r *Recorder) RecordIndicatorAge(family models.Family, age time.Duration, stale bool) {
	r.indicatorAge.WithLabelValues(string(family)).Set(age.Seconds())
	v := 0.0
	if stale {
		v = 1
	}
	r.indicatorStale.WithLabelValues(string(family)).Set(v)
}

func (r *Recorder) RecordAnalysis(res *models.AnalysisResult, seconds float64) {
	r.analysisTime.Observe(seconds)
	if res == nil {
		return
	}
	r.score.Set(float64(res.Score))
	r.confidence.Set(res.Confidence)
	for _, a := range []models.Action{models.ActionLong, models.ActionShort, models.ActionWait} {
		v := 0.0
		if a == res.Action {
			v = 1
		}
		r.action.WithLabelValues(string(a)).Set(v)
	}
	counts := res.CountBySeverity()
	for sev := 1; sev <= 3; sev++ {
		r.signals.WithLabelValues(strconv.Itoa(sev)).Set(float64(counts[sev]))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
