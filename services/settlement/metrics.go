package settlement

import (
	"sync"

	"github.com/nomadmarket/nomadledger/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusSettlementMint      prometheus.Histogram
	prometheusSettlementPurchase  prometheus.Histogram
	prometheusSettlementVolume    prometheus.Counter
	prometheusSettlementErrors    *prometheus.CounterVec
	prometheusSettlementPublished *prometheus.CounterVec
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusSettlementMint = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nomadledger",
			Subsystem: "settlement",
			Name:      "mint",
			Help:      "Duration of explicit token mints",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusSettlementPurchase = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nomadledger",
			Subsystem: "settlement",
			Name:      "purchase",
			Help:      "Duration of committed purchases",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusSettlementVolume = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Subsystem: "settlement",
			Name:      "volume",
			Help:      "Sum of settled amounts",
		},
	)

	prometheusSettlementErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Subsystem: "settlement",
			Name:      "errors",
			Help:      "Number of failed operations by outcome",
		},
		[]string{
			"function", // Mint or Purchase
			"code",     // error code name
		},
	)

	prometheusSettlementPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Subsystem: "settlement",
			Name:      "events_published",
			Help:      "Number of settlement events handed to the publisher",
		},
		[]string{
			"result", // ok or error
		},
	)
}
