package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts cache-aside hits by entity kind.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_cache_hits_total",
		Help: "Number of cache-aside hits.",
	}, []string{"entity"})

	// CacheMisses counts cache-aside misses by entity kind.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_cache_misses_total",
		Help: "Number of cache-aside misses.",
	}, []string{"entity"})

	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_redis_errors_total",
		Help: "Number of Redis command errors.",
	}, []string{"command"})

	// ThreadCascadeDeletes counts threads removed by user cascade deletes.
	ThreadCascadeDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_thread_cascade_deletes_total",
		Help: "Number of threads deleted as part of a user cascade delete.",
	})
)

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the request-instrumentation handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
