package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis command failures by command name. Incremented
	// from the cache package's client hook.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapgram_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})

	// StoriesSwept counts stories removed by the expiry sweep.
	StoriesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapgram_stories_swept_total",
		Help: "Total number of expired stories removed by the sweep",
	})

	// ViewWriteFailures counts best-effort view-ledger writes that failed.
	// These are never surfaced to the viewer, so the counter is the only
	// place they become visible.
	ViewWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapgram_view_write_failures_total",
		Help: "Total number of failed story view writes",
	})
)

// InitMetrics creates the Prometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler that records per-request metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
