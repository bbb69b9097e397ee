package factory

import (
	"net/url"
	"testing"
	"time"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/idempotency/memory"
	"github.com/nomadmarket/nomadledger/stores/idempotency/redis"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsWithStore(t *testing.T, rawURL string) *settings.Settings {
	t.Helper()

	tSettings := settings.NewSettings()
	tSettings.Idempotency.TTL = time.Minute
	tSettings.Idempotency.StoreURL = nil

	if rawURL != "" {
		u, err := url.Parse(rawURL)
		require.NoError(t, err)

		tSettings.Idempotency.StoreURL = u
	}

	return tSettings
}

func TestNewStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := NewStore(ulogger.TestLogger{}, settingsWithStore(t, "memory://"))
		require.NoError(t, err)

		defer func() {
			_ = store.Close()
		}()

		assert.IsType(t, &memory.Memory{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		store, err := NewStore(ulogger.TestLogger{}, settingsWithStore(t, "redis://localhost:6379"))
		require.NoError(t, err)

		defer func() {
			_ = store.Close()
		}()

		assert.IsType(t, &redis.Redis{}, store)
	})

	t.Run("not configured", func(t *testing.T) {
		store, err := NewStore(ulogger.TestLogger{}, settingsWithStore(t, ""))
		require.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("unknown scheme", func(t *testing.T) {
		_, err := NewStore(ulogger.TestLogger{}, settingsWithStore(t, "memcached://localhost"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}
