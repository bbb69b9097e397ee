package settings

import (
	"time"
)

func NewSettings() *Settings {
	return &Settings{
		ServiceName:        getString("SERVICE_NAME", "nomadledger"),
		LogLevel:           getString("logLevel", "INFO"),
		PrettyLogs:         getBool("PRETTY_LOGS", true),
		DataFolder:         getString("dataFolder", "data"),
		PrometheusEndpoint: getString("prometheusEndpoint", "/metrics"),
		StatsPrefix:        getString("statsPrefix", "/stats/"),
		Ledger: LedgerSettings{
			StoreURL:             getURL("ledgerstore", "sqlite:///ledger"),
			DBTimeout:            getMillis("ledger_dbTimeoutMillis", 5000),
			PostgresMaxIdleConns: getInt("ledger_postgresMaxIdleConns", 10),
			PostgresMaxOpenConns: getInt("ledger_postgresMaxOpenConns", 80),
			InitialBalance:       getDecimal("ledger_initialBalance", "100"),
			Currency:             getString("ledger_currency", "SOL"),
			RetryCount:           getInt("ledger_retryCount", 1),
			RetryBackoff:         getMillis("ledger_retryBackoffMillis", 10),
		},
		Market: MarketSettings{
			HTTPListenAddress: getString("market_httpListenAddress", ":8090"),
			APIPrefix:         getString("market_apiPrefix", "/api/v1"),
			IdentityHeader:    getString("market_identityHeader", "X-Account-Id"),
			EchoDebug:         getBool("market_echoDebug", false),
			RateLimit:         getFloat("market_rateLimitPerSecond", 0),
			RateLimitBurst:    getInt("market_rateLimitBurst", 0),
		},
		Idempotency: IdempotencySettings{
			StoreURL:   getURL("idempotency_store", "memory://"),
			TTL:        time.Duration(getInt("idempotency_ttlSeconds", 86400)) * time.Second,
			PendingTTL: time.Duration(getInt("idempotency_pendingSeconds", 30)) * time.Second,
		},
		Kafka: KafkaSettings{
			SettlementsURL: getURL("kafka_settlementsURL", ""),
			PublishTimeout: getMillis("kafka_publishTimeoutMillis", 5000),
		},
	}
}
