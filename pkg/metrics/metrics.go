// Package metrics exposes engine token and dispatch events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements engine.Recorder. It is safe for concurrent use.
type Collector struct {
	tokenCacheHits  prometheus.Counter
	tokenWaits      prometheus.Counter
	tokenRenewals   *prometheus.CounterVec
	renewalDuration *prometheus.HistogramVec
	dispatches      *prometheus.CounterVec
}

// NewCollector creates a collector on the default registerer
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector using the supplied registerer
func NewCollectorWithRegistry(registry prometheus.Registerer) *Collector {
	factory := promauto.With(registry)
	return &Collector{
		tokenCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cogs_token_cache_hits_total",
			Help: "Calls served by the cached access token",
		}),
		tokenWaits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cogs_token_waits_total",
			Help: "Calls that waited on a renewal started by another caller",
		}),
		tokenRenewals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cogs_token_renewals_total",
				Help: "Calls made to the token endpoint",
			},
			[]string{"outcome"},
		),
		renewalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cogs_token_renewal_duration_seconds",
				Help:    "Duration of token endpoint calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cogs_dispatches_total",
				Help: "Cog calls by endpoint and outcome",
			},
			[]string{"cog", "outcome"},
		),
	}
}

func (c *Collector) TokenCacheHit() {
	c.tokenCacheHits.Inc()
}

func (c *Collector) TokenWait() {
	c.tokenWaits.Inc()
}

func (c *Collector) TokenRenewal(outcome string, elapsed time.Duration) {
	c.tokenRenewals.WithLabelValues(outcome).Inc()
	c.renewalDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (c *Collector) Dispatch(cog string, outcome string) {
	c.dispatches.WithLabelValues(cog, outcome).Inc()
}
