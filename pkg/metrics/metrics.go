// Package metrics exports storefront client telemetry to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/storefront"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ storefront.Metrics = (*Collector)(nil)

// Collector implements storefront.Metrics on Prometheus collectors.
type Collector struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	renewals       *prometheus.CounterVec
	renewalLatency prometheus.Histogram
	replays        prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_requests_total",
			Help: "API calls by method, route and status code (0 for transport failures).",
		}, []string{"method", "route", "status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_request_duration_seconds",
			Help:    "API call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_token_renewals_total",
			Help: "Access token renewals by outcome.",
		}, []string{"outcome"}),
		renewalLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_token_renewal_duration_seconds",
			Help:    "Token renewal latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_request_replays_total",
			Help: "Calls replayed after a successful renewal.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.renewals,
		c.renewalLatency,
		c.replays,
	)

	return c
}

func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) ObserveRenewal(outcome string, d time.Duration) {
	c.renewals.WithLabelValues(outcome).Inc()
	c.renewalLatency.Observe(d.Seconds())
}

func (c *Collector) IncReplay() {
	c.replays.Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
