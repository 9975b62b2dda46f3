// Package metrics exposes the server's Prometheus counters: requests
// handled per opcode, simulated drops per direction, duplicate-cache
// outcomes, and callback fan-out. Grounded on
// Cizor-spacetime-constellation-sim's internal/observability collector,
// whose register-tolerant helpers (so re-registering an existing
// collector against the same registerer is not an error) are adopted
// unchanged; this package drops the gRPC interceptor and scenario
// gauges that collector carries since this server has neither.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the server's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	RequestsTotal  *prometheus.CounterVec
	DropsTotal     *prometheus.CounterVec
	DupCacheHits   prometheus.Counter
	DupCacheMisses prometheus.Counter
	CallbacksSent  prometheus.Counter
}

// New registers the server's metrics against reg, defaulting to the
// global Prometheus registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_requests_total",
		Help: "Total number of handled requests, labeled by op_code name.",
	}, []string{"op"})
	requests, err := registerCounterVec(reg, requests, "booking_requests_total")
	if err != nil {
		return nil, err
	}

	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_simulated_drops_total",
		Help: "Total number of datagrams dropped by the fault-injection simulator, labeled by direction.",
	}, []string{"direction"})
	drops, err = registerCounterVec(reg, drops, "booking_simulated_drops_total")
	if err != nil {
		return nil, err
	}

	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_dup_cache_hits_total",
		Help: "Total number of at-most-once requests served from the duplicate-request cache without re-execution.",
	}), "booking_dup_cache_hits_total")
	if err != nil {
		return nil, err
	}
	misses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_dup_cache_misses_total",
		Help: "Total number of at-most-once requests that executed because no live cache entry was found.",
	}), "booking_dup_cache_misses_total")
	if err != nil {
		return nil, err
	}
	callbacks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_callbacks_sent_total",
		Help: "Total number of monitor callback datagrams sent.",
	}), "booking_callbacks_sent_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		RequestsTotal:  requests,
		DropsTotal:     drops,
		DupCacheHits:   hits,
		DupCacheMisses: misses,
		CallbacksSent:  callbacks,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}
