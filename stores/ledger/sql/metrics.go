package sql

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusLedgerUpdate       prometheus.Counter
	prometheusLedgerView         prometheus.Counter
	prometheusLedgerTokensMinted prometheus.Counter
	prometheusLedgerErrors       *prometheus.CounterVec

	// only init the metrics once
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusLedgerUpdate = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Name:      "sql_ledger_update",
			Help:      "Number of write transactions done to sql",
		},
	)
	prometheusLedgerView = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Name:      "sql_ledger_view",
			Help:      "Number of read transactions done to sql",
		},
	)
	prometheusLedgerTokensMinted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Name:      "sql_ledger_tokens_minted",
			Help:      "Number of tokens inserted",
		},
	)
	prometheusLedgerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nomadledger",
			Name:      "sql_ledger_errors",
			Help:      "Number of ledger store errors",
		},
		[]string{
			"function", // function raising the error
			"error",    // error returned
		},
	)
}
