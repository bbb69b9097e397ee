// Package memory keeps idempotency records in process, expiring them with ttlcache.
package memory

import (
	"context"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/nomadmarket/nomadledger/stores/idempotency"
)

type Memory struct {
	cache *ttlcache.Cache[string, *idempotency.Response]
}

func New(ttl time.Duration) *Memory {
	cache := ttlcache.New[string, *idempotency.Response](
		ttlcache.WithTTL[string, *idempotency.Response](ttl),
		ttlcache.WithDisableTouchOnHit[string, *idempotency.Response](),
	)

	go cache.Start()

	return &Memory{
		cache: cache,
	}
}

func (m *Memory) Get(_ context.Context, key string) (*idempotency.Response, error) {
	item := m.cache.Get(key)
	if item == nil {
		return nil, nil
	}

	return item.Value(), nil
}

func (m *Memory) Reserve(_ context.Context, key string, ttl time.Duration) (*idempotency.Response, error) {
	item, found := m.cache.GetOrSet(key, idempotency.PendingResponse(), ttlcache.WithTTL[string, *idempotency.Response](ttl))
	if !found {
		return nil, nil
	}

	return item.Value(), nil
}

func (m *Memory) Complete(_ context.Context, key string, resp *idempotency.Response, ttl time.Duration) error {
	m.cache.Set(key, resp, ttl)

	return nil
}

func (m *Memory) Release(_ context.Context, key string) error {
	m.cache.Delete(key)

	return nil
}

func (m *Memory) Health(_ context.Context, _ bool) (int, string, error) {
	return http.StatusOK, "memory idempotency store", nil
}

func (m *Memory) Close() error {
	m.cache.Stop()
	m.cache.DeleteAll()

	return nil
}
