package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the first failures calls to Update with err.
type flakyStore struct {
	ledger.Store
	failures int
	err      error
	calls    int
}

func (f *flakyStore) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	f.calls++

	if f.calls <= f.failures {
		return f.err
	}

	return f.Store.Update(ctx, fn)
}

func newFlakyEngine(t *testing.T, failures int, err error) (*Engine, *flakyStore) {
	t.Helper()

	store := &flakyStore{Store: newTestStore(t), failures: failures, err: err}

	tSettings := settings.NewSettings()
	tSettings.Ledger.RetryCount = 3
	tSettings.Ledger.RetryBackoff = time.Millisecond

	return New(ulogger.TestLogger{}, tSettings, store, nil), store
}

func TestEngine_RetriesTransientAborts(t *testing.T) {
	t.Run("purchase succeeds after aborts", func(t *testing.T) {
		engine, store := newFlakyEngine(t, 2, errors.NewStorageUnavailableError("deadlock detected"))

		seller := createAccount(t, store, "seller", "0")
		buyer := createAccount(t, store, "buyer", "100")
		item := createItem(t, store, seller.ID, "Lamp", "40")

		entry, err := engine.Purchase(context.Background(), item.ID, buyer.ID)
		require.NoError(t, err)
		assert.Equal(t, buyer.ID, entry.BuyerID)
		assert.Equal(t, 3, store.calls)

		requireBalance(t, store, buyer.ID, "60")
		requireBalance(t, store, seller.ID, "40")
	})

	t.Run("gives up after the retry count", func(t *testing.T) {
		engine, store := newFlakyEngine(t, 5, errors.NewStorageUnavailableError("could not serialize access"))

		seller := createAccount(t, store, "seller", "0")
		item := createItem(t, store, seller.ID, "Lamp", "40")

		_, err := engine.Mint(context.Background(), item.ID, seller.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
		assert.Equal(t, 3, store.calls)
	})

	t.Run("other storage errors are not retried", func(t *testing.T) {
		engine, store := newFlakyEngine(t, 1, errors.NewStorageError("disk full"))

		seller := createAccount(t, store, "seller", "0")
		item := createItem(t, store, seller.ID, "Lamp", "40")

		_, err := engine.Mint(context.Background(), item.ID, seller.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStorageError))
		assert.Equal(t, 1, store.calls)
	})

	t.Run("default settings make a single attempt", func(t *testing.T) {
		store := &flakyStore{Store: newTestStore(t), failures: 1, err: errors.NewStorageUnavailableError("deadlock detected")}
		engine := New(ulogger.TestLogger{}, settings.NewSettings(), store, nil)

		seller := createAccount(t, store, "seller", "0")
		item := createItem(t, store, seller.ID, "Lamp", "40")

		_, err := engine.Mint(context.Background(), item.ID, seller.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
		assert.Equal(t, 1, store.calls)
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		engine, store := newFlakyEngine(t, 0, nil)

		seller := createAccount(t, store, "seller", "0")
		buyer := createAccount(t, store, "buyer", "10")
		item := createItem(t, store, seller.ID, "Lamp", "40")

		_, err := engine.Purchase(context.Background(), item.ID, buyer.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInsufficientFunds))
		assert.Equal(t, 1, store.calls)
	})
}
