package api

import (
	"Sentinel/internal/service/metrics"
	"Sentinel/internal/service/ratelimit"
	xhttp "Sentinel/pkg/http"
	applogger "Sentinel/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RateLimit rejects clients that exceed capacity requests with a steady refill per second.
// Buckets are keyed by client IP and route.
func RateLimit(rl *ratelimit.Limiter, capacity, refillPerSec float64, m *metrics.APIMetrics, l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if rl.Allow(c.RealIP()+":"+route, capacity, refillPerSec) {
				return next(c)
			}
			m.Limited(route)
			l.Debug("rate limited",
				applogger.String("remote", c.RealIP()),
				applogger.String("route", route),
			)
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
		}
	}
}
