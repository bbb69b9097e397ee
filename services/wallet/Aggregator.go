// Package wallet assembles the read model of one account.
package wallet

import (
	"context"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/nomadmarket/nomadledger/util"
	"github.com/ordishs/gocore"
)

var stats = gocore.NewStat("wallet")

type Aggregator struct {
	logger ulogger.Logger
	store  ledger.Store
}

func New(logger ulogger.Logger, store ledger.Store) *Aggregator {
	return &Aggregator{
		logger: logger,
		store:  store,
	}
}

// GetWallet returns the profile, balance, owned tokens, ledger history and
// notifications of accountID. Only the account itself may read its wallet.
// Everything is read from one snapshot, so a settlement committing concurrently
// is either fully visible or not at all.
func (a *Aggregator) GetWallet(ctx context.Context, callerAccountID, accountID int64) (*model.Wallet, error) {
	start, stat, ctx := util.NewStatFromContext(ctx, "GetWallet", stats)
	defer func() {
		stat.AddTime(start)
	}()

	if callerAccountID != accountID {
		return nil, errors.NewForbiddenError("account %d may not read the wallet of account %d", callerAccountID, accountID)
	}

	wallet := &model.Wallet{}

	err := a.store.View(ctx, func(r ledger.Reader) error {
		var err error

		if wallet.Account, err = r.GetAccount(ctx, accountID); err != nil {
			return err
		}

		if wallet.Tokens, err = r.ListOwnedTokens(ctx, accountID); err != nil {
			return err
		}

		if wallet.LedgerEntries, err = r.ListLedgerEntries(ctx, accountID); err != nil {
			return err
		}

		wallet.Notifications, err = r.ListNotifications(ctx, accountID)

		return err
	})
	if err != nil {
		if errors.IsInternalError(err) {
			a.logger.Errorf("[GetWallet] account %d: %v", accountID, err)
		}

		return nil, err
	}

	return wallet, nil
}
