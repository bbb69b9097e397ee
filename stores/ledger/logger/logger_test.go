package logger

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/stores/ledger/sql"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerStore(t *testing.T) {
	ctx := context.Background()

	storeURL, err := url.Parse("sqlitememory:///ledger")
	require.NoError(t, err)

	inner, err := sql.New(ctx, ulogger.TestLogger{}, settings.NewSettings(), storeURL)
	require.NoError(t, err)

	var buf bytes.Buffer

	s := New(ulogger.New("test", ulogger.WithWriter(&buf), ulogger.WithPretty(false)), inner)

	defer func() {
		_ = s.Close()
	}()

	account, err := s.CreateAccount(ctx, "alice", "", decimal.NewFromInt(100))
	require.NoError(t, err)

	item, err := s.CreateItem(ctx, account.ID, "Vase", "", decimal.NewFromInt(3))
	require.NoError(t, err)

	err = s.Update(ctx, func(tx ledger.Tx) error {
		_, err := tx.InsertTokenIfAbsent(ctx, item.ID, account.ID, account.ID)
		return err
	})
	require.NoError(t, err)

	err = s.View(ctx, func(r ledger.Reader) error {
		_, err := r.ListOwnedTokens(ctx, account.ID)
		return err
	})
	require.NoError(t, err)

	_, err = s.GetAccount(ctx, 9999)
	require.Error(t, err)

	out := buf.String()

	assert.Contains(t, out, "[LedgerStore][logger][CreateAccount]")
	assert.Contains(t, out, "[LedgerStore][logger][CreateItem]")
	assert.Contains(t, out, "[LedgerStore][logger][InsertTokenIfAbsent]")
	assert.Contains(t, out, "[LedgerStore][logger][Update]")
	assert.Contains(t, out, "[LedgerStore][logger][ListOwnedTokens]")
	assert.Contains(t, out, "[LedgerStore][logger][View]")
	assert.Contains(t, out, "[LedgerStore][logger][GetAccount] account 9999")
}
