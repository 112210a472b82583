package api

import (
	"time"

	"Sentinel/internal/domain/models"
	"Sentinel/internal/service/metrics"
	"Sentinel/internal/services/analysis"
	xhttp "Sentinel/pkg/http"
	applogger "Sentinel/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ResultReader exposes the latest analysis result.
type ResultReader interface {
	Latest() (models.AnalysisResult, bool)
}

// SnapshotReader exposes the indicator snapshot and its freshness.
type SnapshotReader interface {
	Snapshot() models.IndicatorSnapshot
	Health(now time.Time) models.HealthReport
}

// SentinelHandler serves the read API over the latest analysis state.
type SentinelHandler struct {
	logger    *applogger.Logger
	results   ResultReader
	snapshots SnapshotReader
	describer *analysis.Describer
	hub       *StreamHub
	metrics   *metrics.APIMetrics
	limit     echo.MiddlewareFunc
	now       func() time.Time
}

var _ xhttp.Handler = (*SentinelHandler)(nil)

// NewSentinelHandler wires the handler. hub and limit may be nil.
func NewSentinelHandler(
	logger *applogger.Logger,
	results ResultReader,
	snapshots SnapshotReader,
	describer *analysis.Describer,
	hub *StreamHub,
	m *metrics.APIMetrics,
	limit echo.MiddlewareFunc,
) *SentinelHandler {
	return &SentinelHandler{
		logger:    logger,
		results:   results,
		snapshots: snapshots,
		describer: describer,
		hub:       hub,
		metrics:   m,
		limit:     limit,
		now:       time.Now,
	}
}

func (h *SentinelHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limit != nil {
		mw = append(mw, h.limit)
	}
	g := e.Group("/api", mw...)
	g.GET("/analysis", h.observe("analysis", h.Analysis))
	g.GET("/snapshot", h.observe("snapshot", h.Snapshot))
	g.GET("/signals", h.observe("signals", h.Signals))
	g.GET("/health", h.observe("health", h.Health))
	if h.hub != nil {
		g.GET("/stream", h.hub.Serve)
	}
}

func (h *SentinelHandler) observe(endpoint string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		h.metrics.Observe(endpoint, time.Since(start).Seconds(), err != nil || c.Response().Status >= 400)
		return err
	}
}

func (h *SentinelHandler) Analysis(c echo.Context) error {
	res, ok := h.results.Latest()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no analysis has completed yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, res)
}

func (h *SentinelHandler) Snapshot(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.describer.Describe(h.snapshots.Snapshot()))
}

type signalsResponse struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Signals     []models.Signal `json:"signals"`
}

func (h *SentinelHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, ok := h.results.Latest()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no analysis has completed yet"))
	}

	out := make([]models.Signal, 0, len(res.Signals))
	for _, s := range res.Signals {
		if s.Severity < req.MinSeverity {
			continue
		}
		if req.Kind != "" && string(s.Kind) != req.Kind {
			continue
		}
		out = append(out, s)
	}
	return xhttp.SuccessResponse(c, signalsResponse{
		ID:          res.ID,
		GeneratedAt: res.GeneratedAt,
		Signals:     out,
	})
}

// Health answers 200 even when degraded; callers read the flag.
func (h *SentinelHandler) Health(c echo.Context) error {
	req := &models.HealthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report := h.snapshots.Health(h.now())
	if req.Family != "" {
		filtered := report.Indicators[:0:0]
		for _, ind := range report.Indicators {
			if string(ind.Family) == req.Family {
				filtered = append(filtered, ind)
			}
		}
		report.Indicators = filtered
	}
	if report.Degraded {
		h.logger.Debug("health degraded", applogger.String("symbol", report.Symbol))
	}
	return xhttp.SuccessResponse(c, report)
}
