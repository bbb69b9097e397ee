package market

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusMarketHTTPCreateAccount *prometheus.CounterVec
	prometheusMarketHTTPCreateItem    *prometheus.CounterVec
	prometheusMarketHTTPMint          *prometheus.CounterVec
	prometheusMarketHTTPPurchase      *prometheus.CounterVec
	prometheusMarketHTTPGetWallet     *prometheus.CounterVec
	prometheusMarketIdempotency       *prometheus.CounterVec
	prometheusMarketRateLimited       prometheus.Counter
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func newHTTPCounter(name, help string) *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Subsystem: "market",
			Name:      name,
			Help:      help,
		},
		[]string{
			"function",  // OK or the error code name
			"operation", // HTTP status returned
		},
	)
}

func _initPrometheusMetrics() {
	prometheusMarketHTTPCreateAccount = newHTTPCounter("http_create_account", "Number of create account requests")
	prometheusMarketHTTPCreateItem = newHTTPCounter("http_create_item", "Number of create item requests")
	prometheusMarketHTTPMint = newHTTPCounter("http_mint", "Number of mint requests")
	prometheusMarketHTTPPurchase = newHTTPCounter("http_purchase", "Number of purchase requests")
	prometheusMarketHTTPGetWallet = newHTTPCounter("http_get_wallet", "Number of wallet requests")

	prometheusMarketIdempotency = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Subsystem: "market",
			Name:      "idempotency_lookups",
			Help:      "Number of idempotency key lookups",
		},
		[]string{
			"result", // hit or miss
		},
	)

	prometheusMarketRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Subsystem: "market",
			Name:      "rate_limited",
			Help:      "Number of requests rejected by the rate limiter",
		},
	)
}
