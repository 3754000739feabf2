package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    prometheus.Counter

	PairRequestsTotal     prometheus.Counter
	ListRequestsTotal     prometheus.Counter
	OverrideRequestsTotal prometheus.Counter

	CacheLookupsTotal    *prometheus.CounterVec
	OverrideHitsTotal    prometheus.Counter
	ProviderFetchesTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		PairRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pair_rate_requests_total",
				Help: "Total number of single pair exchange rate requests",
			},
		),

		ListRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_listing_requests_total",
				Help: "Total number of bulk exchange rate listing requests",
			},
		),

		OverrideRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "override_requests_total",
				Help: "Total number of rate override registration requests",
			},
		),

		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_cache_lookups_total",
				Help: "Pair rate cache lookups by result",
			},
			[]string{"result"},
		),

		OverrideHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_override_hits_total",
				Help: "Pair resolutions answered by a registered override",
			},
		),

		ProviderFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_provider_fetches_total",
				Help: "Upstream rate table fetches by outcome",
			},
			[]string{"outcome"},
		),
	}
}
