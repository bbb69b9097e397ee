package settings

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

type LedgerSettings struct {
	StoreURL             *url.URL
	DBTimeout            time.Duration
	PostgresMaxIdleConns int
	PostgresMaxOpenConns int
	InitialBalance       decimal.Decimal
	Currency             string
	RetryCount           int
	RetryBackoff         time.Duration
}

type MarketSettings struct {
	HTTPListenAddress string
	APIPrefix         string
	IdentityHeader    string
	EchoDebug         bool
	RateLimit         float64
	RateLimitBurst    int
}

type IdempotencySettings struct {
	StoreURL   *url.URL
	TTL        time.Duration
	PendingTTL time.Duration
}

type KafkaSettings struct {
	SettlementsURL *url.URL
	PublishTimeout time.Duration
}

type Settings struct {
	ServiceName        string
	LogLevel           string
	PrettyLogs         bool
	DataFolder         string
	PrometheusEndpoint string
	StatsPrefix        string
	Ledger             LedgerSettings
	Market             MarketSettings
	Idempotency        IdempotencySettings
	Kafka              KafkaSettings
}
