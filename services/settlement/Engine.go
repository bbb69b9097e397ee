// Package settlement mints item tokens and executes purchases.
//
// A purchase moves the item price from the buyer balance to the seller balance,
// hands the item token to the buyer, appends a ledger entry and notifies the seller.
// All of it happens in one store transaction: either every effect is committed or
// none is. The engine keeps no shared mutable state of its own; concurrent
// purchases are coordinated by the row locks the store takes, always the token
// row first and then the two account rows in ascending id order.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/nomadmarket/nomadledger/util"
	"github.com/nomadmarket/nomadledger/util/retry"
	"github.com/ordishs/gocore"
)

var stats = gocore.NewStat("settlement")

type Engine struct {
	logger       ulogger.Logger
	settings     *settings.Settings
	store        ledger.Store
	publisher    Publisher
	newReference func() (string, error)
}

func New(logger ulogger.Logger, tSettings *settings.Settings, store ledger.Store, publisher Publisher) *Engine {
	initPrometheusMetrics()

	if publisher == nil {
		publisher = NoopPublisher{}
	}

	return &Engine{
		logger:       logger,
		settings:     tSettings,
		store:        store,
		publisher:    publisher,
		newReference: NewReference,
	}
}

// Mint creates the token of an item on behalf of actingAccountID. The token is
// owned by the item's listing owner, whoever asks for it.
func (e *Engine) Mint(ctx context.Context, itemID, actingAccountID int64) (*model.Token, error) {
	start, stat, ctx := util.NewStatFromContext(ctx, "Mint", stats)
	defer func() {
		stat.AddTime(start)
	}()

	var token *model.Token

	err := e.update(ctx, "Mint", func(tx ledger.Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}

		if _, err = tx.GetAccount(ctx, actingAccountID); err != nil {
			return err
		}

		token, err = tx.InsertToken(ctx, item.ID, item.OwnerAccountID, actingAccountID)

		return err
	})
	if err != nil {
		e.recordError("Mint", err)
		return nil, err
	}

	prometheusSettlementMint.Observe(util.TimeSince(start))

	e.logger.Infof("[Mint] minted token %d for item %d owned by %d, requested by %d", token.ID, itemID, token.OwnerAccountID, actingAccountID)

	return token, nil
}

// Purchase buys the token of itemID for buyerAccountID at the item's price.
//
// The token is minted first if the item has none. The seller is the owner of the
// token as observed under its row lock, so the loser of a race for the same item
// buys from the winner unless WithExpectedSeller is passed.
func (e *Engine) Purchase(ctx context.Context, itemID, buyerAccountID int64, opts ...PurchaseOption) (*model.LedgerEntry, error) {
	start, stat, ctx := util.NewStatFromContext(ctx, "Purchase", stats)
	defer func() {
		stat.AddTime(start)
	}()

	options := applyPurchaseOptions(opts)

	var entry *model.LedgerEntry

	err := e.update(ctx, "Purchase", func(tx ledger.Tx) error {
		var err error

		entry, err = e.settle(ctx, tx, itemID, buyerAccountID, options)

		return err
	})
	if err != nil {
		e.recordError("Purchase", err)
		return nil, err
	}

	prometheusSettlementPurchase.Observe(util.TimeSince(start))
	prometheusSettlementVolume.Add(entry.Amount.InexactFloat64())

	e.logger.Infof("[Purchase] item %d sold by %d to %d for %s %s, reference %s", entry.ItemID, entry.SellerID, entry.BuyerID, entry.Amount, e.settings.Ledger.Currency, entry.Reference)

	e.publish(ctx, entry)

	return entry, nil
}

// update runs fn in a store transaction. With ledger_retryCount above one, a
// transaction the store aborted for contention is run again; such an abort
// leaves nothing written. Every other error is returned as is.
func (e *Engine) update(ctx context.Context, function string, fn func(tx ledger.Tx) error) error {
	_, err := retry.Retry(ctx, e.logger, func() (struct{}, error) {
		return struct{}{}, e.store.Update(ctx, fn)
	},
		retry.WithRetryCount(e.settings.Ledger.RetryCount),
		retry.WithBackoffMultiplier(2),
		retry.WithBackoffDurationType(e.settings.Ledger.RetryBackoff),
		retry.WithMessage("["+function+"] transaction aborted by the store"),
		retry.WithRetryable(func(err error) bool {
			return errors.CodeOf(err) == errors.ERR_STORAGE_UNAVAILABLE
		}),
	)

	return err
}

func (e *Engine) settle(ctx context.Context, tx ledger.Tx, itemID, buyerAccountID int64, options purchaseOptions) (*model.LedgerEntry, error) {
	item, err := tx.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if !item.Price.IsPositive() {
		return nil, errors.NewInvalidOperationError("item %d has no price and cannot be purchased", itemID)
	}

	if _, err = tx.InsertTokenIfAbsent(ctx, item.ID, item.OwnerAccountID, item.OwnerAccountID); err != nil {
		return nil, err
	}

	token, err := tx.GetTokenByItemForUpdate(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	sellerID := token.OwnerAccountID
	if sellerID == 0 {
		sellerID = item.OwnerAccountID
	}

	if options.expectedSellerID != 0 && options.expectedSellerID != sellerID {
		return nil, errors.NewConflictError("item %d is now owned by %d, expected %d", itemID, sellerID, options.expectedSellerID)
	}

	if sellerID == buyerAccountID {
		return nil, errors.NewInvalidOperationError("account %d already owns item %d", buyerAccountID, itemID)
	}

	accounts, err := tx.LockAccounts(ctx, buyerAccountID, sellerID)
	if err != nil {
		return nil, err
	}

	buyer := accounts[buyerAccountID]
	seller := accounts[sellerID]

	if buyer.Balance.LessThan(item.Price) {
		return nil, errors.NewInsufficientFundsError("account %d has %s, item %d costs %s", buyerAccountID, buyer.Balance, itemID, item.Price)
	}

	if err = tx.SetBalance(ctx, buyer.ID, buyer.Balance.Sub(item.Price)); err != nil {
		return nil, err
	}

	if err = tx.SetBalance(ctx, seller.ID, seller.Balance.Add(item.Price)); err != nil {
		return nil, err
	}

	reference, err := e.newReference()
	if err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		TokenID:   token.ID,
		ItemID:    item.ID,
		SellerID:  seller.ID,
		BuyerID:   buyer.ID,
		Amount:    item.Price,
		Reference: reference,
	}

	if err = tx.InsertLedgerEntry(ctx, entry); err != nil {
		return nil, err
	}

	if err = tx.UpdateTokenOwner(ctx, token.ID, buyer.ID); err != nil {
		return nil, err
	}

	if _, err = tx.InsertNotification(ctx, seller.ID, SaleMessage(item, e.settings.Ledger.Currency)); err != nil {
		return nil, err
	}

	return entry, nil
}

// SaleMessage is the notification text the seller receives.
func SaleMessage(item *model.Item, currency string) string {
	return fmt.Sprintf("Your item \"%s\" was bought for %s %s", item.Title, item.Price.String(), currency)
}

// publish runs after the commit, so the event is sent even when the caller has
// gone away in the meantime.
func (e *Engine) publish(ctx context.Context, entry *model.LedgerEntry) {
	timeout := e.settings.Kafka.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := e.publisher.Publish(ctx, newSettlementEvent(entry, e.settings.Ledger.Currency)); err != nil {
		prometheusSettlementPublished.WithLabelValues("error").Inc()
		e.logger.Errorf("[Purchase] failed to publish settlement %s: %v", entry.Reference, err)

		return
	}

	prometheusSettlementPublished.WithLabelValues("ok").Inc()
}

func (e *Engine) recordError(function string, err error) {
	prometheusSettlementErrors.WithLabelValues(function, errors.CodeOf(err).String()).Inc()

	if errors.IsInternalError(err) {
		e.logger.Errorf("[%s] %v", function, err)
		return
	}

	e.logger.Debugf("[%s] rejected: %v", function, err)
}
