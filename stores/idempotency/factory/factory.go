// Package factory creates the idempotency store named by the idempotency_store setting.
//
//   - memory://            in-process, lost on restart
//   - redis://host:port/db shared between instances
package factory

import (
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/idempotency"
	"github.com/nomadmarket/nomadledger/stores/idempotency/memory"
	"github.com/nomadmarket/nomadledger/stores/idempotency/redis"
	"github.com/nomadmarket/nomadledger/ulogger"
)

// NewStore returns nil without error when no store is configured; the HTTP API
// then processes every request, key or not.
func NewStore(logger ulogger.Logger, tSettings *settings.Settings) (idempotency.Store, error) {
	storeURL := tSettings.Idempotency.StoreURL
	if storeURL == nil {
		logger.Warnf("[Idempotency] no idempotency_store configured, idempotency keys are ignored")
		return nil, nil
	}

	switch storeURL.Scheme {
	case "memory":
		logger.Infof("[Idempotency] using in-memory store, ttl %s", tSettings.Idempotency.TTL)
		return memory.New(tSettings.Idempotency.TTL), nil
	case "redis":
		logger.Infof("[Idempotency] using redis store at %s, ttl %s", storeURL.Host, tSettings.Idempotency.TTL)
		return redis.New(storeURL)
	default:
		return nil, errors.NewConfigurationError("unknown idempotency store scheme: %s", storeURL.Scheme)
	}
}
