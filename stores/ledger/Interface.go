// Package ledger defines the storage contract of the settlement engine.
//
// Writes happen inside Update, which runs a callback against one database
// transaction and commits only if the callback returns nil. Reads that must
// observe a consistent snapshot run inside View.
package ledger

import (
	"context"

	"github.com/nomadmarket/nomadledger/model"
	"github.com/shopspring/decimal"
)

// Reader is the read side available both inside and outside a write transaction.
type Reader interface {
	GetAccount(ctx context.Context, accountID int64) (*model.Account, error)
	GetItem(ctx context.Context, itemID int64) (*model.Item, error)
	GetTokenByItem(ctx context.Context, itemID int64) (*model.Token, error)
	ListOwnedTokens(ctx context.Context, accountID int64) ([]*model.OwnedToken, error)
	ListLedgerEntries(ctx context.Context, accountID int64) ([]*model.LedgerEntry, error)
	ListNotifications(ctx context.Context, accountID int64) ([]*model.Notification, error)
}

// Tx is a write transaction. Every error returned by its methods aborts the
// surrounding Update.
type Tx interface {
	Reader

	// InsertToken fails with ERR_CONFLICT if the item already has a token.
	InsertToken(ctx context.Context, itemID, ownerAccountID, mintedBy int64) (*model.Token, error)

	// InsertTokenIfAbsent reports whether a token was created.
	InsertTokenIfAbsent(ctx context.Context, itemID, ownerAccountID, mintedBy int64) (bool, error)

	// GetTokenByItemForUpdate reads the token and holds an exclusive lock on it until the transaction ends.
	GetTokenByItemForUpdate(ctx context.Context, itemID int64) (*model.Token, error)

	// LockAccounts locks the given accounts in ascending id order and returns
	// their balances as seen under the lock.
	LockAccounts(ctx context.Context, accountIDs ...int64) (map[int64]*model.Account, error)

	SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	UpdateTokenOwner(ctx context.Context, tokenID, ownerAccountID int64) error
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error
	InsertNotification(ctx context.Context, accountID int64, message string) (*model.Notification, error)
}

type Store interface {
	Reader

	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(r Reader) error) error

	CreateAccount(ctx context.Context, displayName, email string, balance decimal.Decimal) (*model.Account, error)
	CreateItem(ctx context.Context, ownerAccountID int64, title, description string, price decimal.Decimal) (*model.Item, error)

	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	Close() error
}
