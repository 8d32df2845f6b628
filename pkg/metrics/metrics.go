// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopup",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shopup",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	guardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopup",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Session guard decisions by area and outcome.",
		},
		[]string{"area", "outcome"},
	)

	cartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopup",
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by operation and result.",
		},
		[]string{"op", "result"},
	)

	containerResolutions = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shopup",
			Subsystem: "container",
			Name:      "construction_duration_seconds",
			Help:      "Duration of service constructions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"service", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		guardDecisions,
		cartMutations,
		containerResolutions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordGuardDecision(area, outcome string) {
	guardDecisions.WithLabelValues(area, outcome).Inc()
}

func RecordCartMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cartMutations.WithLabelValues(op, result).Inc()
}

// ObserveConstruction matches container.ObserverFunc.
func ObserveConstruction(service string, d time.Duration, err error) {
	containerResolutions.WithLabelValues(service, strconv.FormatBool(err == nil)).Observe(d.Seconds())
}
