// Package logger wraps a ledger store and logs every call with its outcome.
package logger

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nomadmarket/nomadledger/model"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/shopspring/decimal"
)

type Store struct {
	logger ulogger.Logger
	store  ledger.Store
}

func New(logger ulogger.Logger, store ledger.Store) *Store {
	return &Store{
		logger: logger,
		store:  store,
	}
}

func caller() string {
	var callers []string

	depth := 3

	for i := 0; i < depth; i++ {
		pc, file, line, ok := runtime.Caller(2 + i)
		if !ok {
			break
		}

		// keep the path relative to the module
		if idx := strings.Index(file, "nomadledger/"); idx >= 0 {
			file = file[idx+len("nomadledger/"):]
		} else {
			file = filepath.Base(file)
		}

		funcName := runtime.FuncForPC(pc).Name()
		funcPaths := strings.Split(funcName, "/")
		funcName = funcPaths[len(funcPaths)-1]

		callers = append(callers, fmt.Sprintf("called from %s: %s:%d", funcName, file, line))
	}

	return strings.Join(callers, ",")
}

func (s *Store) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	status, details, err := s.store.Health(ctx, checkLiveness)
	s.logger.Infof("[LedgerStore][logger][Health] status %d details %s err %v : %s", status, details, err, caller())

	return status, details, err
}

func (s *Store) Close() error {
	err := s.store.Close()
	s.logger.Infof("[LedgerStore][logger][Close] err %v", err)

	return err
}

func (s *Store) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		return fn(&loggingTx{loggingReader: loggingReader{logger: s.logger, r: tx}, tx: tx})
	})
	s.logger.Infof("[LedgerStore][logger][Update] err %v : %s", err, caller())

	return err
}

func (s *Store) View(ctx context.Context, fn func(r ledger.Reader) error) error {
	err := s.store.View(ctx, func(r ledger.Reader) error {
		return fn(loggingReader{logger: s.logger, r: r})
	})
	s.logger.Infof("[LedgerStore][logger][View] err %v : %s", err, caller())

	return err
}

func (s *Store) CreateAccount(ctx context.Context, displayName, email string, balance decimal.Decimal) (*model.Account, error) {
	account, err := s.store.CreateAccount(ctx, displayName, email, balance)
	s.logger.Infof("[LedgerStore][logger][CreateAccount] displayName %q balance %s account %v err %v : %s", displayName, balance, account, err, caller())

	return account, err
}

func (s *Store) CreateItem(ctx context.Context, ownerAccountID int64, title, description string, price decimal.Decimal) (*model.Item, error) {
	item, err := s.store.CreateItem(ctx, ownerAccountID, title, description, price)
	s.logger.Infof("[LedgerStore][logger][CreateItem] owner %d title %q price %s item %v err %v : %s", ownerAccountID, title, price, item, err, caller())

	return item, err
}

func (s *Store) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	return loggingReader{logger: s.logger, r: s.store}.GetAccount(ctx, accountID)
}

func (s *Store) GetItem(ctx context.Context, itemID int64) (*model.Item, error) {
	return loggingReader{logger: s.logger, r: s.store}.GetItem(ctx, itemID)
}

func (s *Store) GetTokenByItem(ctx context.Context, itemID int64) (*model.Token, error) {
	return loggingReader{logger: s.logger, r: s.store}.GetTokenByItem(ctx, itemID)
}

func (s *Store) ListOwnedTokens(ctx context.Context, accountID int64) ([]*model.OwnedToken, error) {
	return loggingReader{logger: s.logger, r: s.store}.ListOwnedTokens(ctx, accountID)
}

func (s *Store) ListLedgerEntries(ctx context.Context, accountID int64) ([]*model.LedgerEntry, error) {
	return loggingReader{logger: s.logger, r: s.store}.ListLedgerEntries(ctx, accountID)
}

func (s *Store) ListNotifications(ctx context.Context, accountID int64) ([]*model.Notification, error) {
	return loggingReader{logger: s.logger, r: s.store}.ListNotifications(ctx, accountID)
}

type loggingReader struct {
	logger ulogger.Logger
	r      ledger.Reader
}

func (l loggingReader) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	account, err := l.r.GetAccount(ctx, accountID)
	l.logger.Infof("[LedgerStore][logger][GetAccount] account %d data %v err %v", accountID, account, err)

	return account, err
}

func (l loggingReader) GetItem(ctx context.Context, itemID int64) (*model.Item, error) {
	item, err := l.r.GetItem(ctx, itemID)
	l.logger.Infof("[LedgerStore][logger][GetItem] item %d data %v err %v", itemID, item, err)

	return item, err
}

func (l loggingReader) GetTokenByItem(ctx context.Context, itemID int64) (*model.Token, error) {
	token, err := l.r.GetTokenByItem(ctx, itemID)
	l.logger.Infof("[LedgerStore][logger][GetTokenByItem] item %d token %v err %v", itemID, token, err)

	return token, err
}

func (l loggingReader) ListOwnedTokens(ctx context.Context, accountID int64) ([]*model.OwnedToken, error) {
	tokens, err := l.r.ListOwnedTokens(ctx, accountID)
	l.logger.Infof("[LedgerStore][logger][ListOwnedTokens] account %d count %d err %v", accountID, len(tokens), err)

	return tokens, err
}

func (l loggingReader) ListLedgerEntries(ctx context.Context, accountID int64) ([]*model.LedgerEntry, error) {
	entries, err := l.r.ListLedgerEntries(ctx, accountID)
	l.logger.Infof("[LedgerStore][logger][ListLedgerEntries] account %d count %d err %v", accountID, len(entries), err)

	return entries, err
}

func (l loggingReader) ListNotifications(ctx context.Context, accountID int64) ([]*model.Notification, error) {
	notifications, err := l.r.ListNotifications(ctx, accountID)
	l.logger.Infof("[LedgerStore][logger][ListNotifications] account %d count %d err %v", accountID, len(notifications), err)

	return notifications, err
}

type loggingTx struct {
	loggingReader
	tx ledger.Tx
}

func (l *loggingTx) InsertToken(ctx context.Context, itemID, ownerAccountID, mintedBy int64) (*model.Token, error) {
	token, err := l.tx.InsertToken(ctx, itemID, ownerAccountID, mintedBy)
	l.logger.Infof("[LedgerStore][logger][InsertToken] item %d owner %d mintedBy %d token %v err %v", itemID, ownerAccountID, mintedBy, token, err)

	return token, err
}

func (l *loggingTx) InsertTokenIfAbsent(ctx context.Context, itemID, ownerAccountID, mintedBy int64) (bool, error) {
	created, err := l.tx.InsertTokenIfAbsent(ctx, itemID, ownerAccountID, mintedBy)
	l.logger.Infof("[LedgerStore][logger][InsertTokenIfAbsent] item %d owner %d created %t err %v", itemID, ownerAccountID, created, err)

	return created, err
}

func (l *loggingTx) GetTokenByItemForUpdate(ctx context.Context, itemID int64) (*model.Token, error) {
	token, err := l.tx.GetTokenByItemForUpdate(ctx, itemID)
	l.logger.Infof("[LedgerStore][logger][GetTokenByItemForUpdate] item %d token %v err %v", itemID, token, err)

	return token, err
}

func (l *loggingTx) LockAccounts(ctx context.Context, accountIDs ...int64) (map[int64]*model.Account, error) {
	accounts, err := l.tx.LockAccounts(ctx, accountIDs...)
	l.logger.Infof("[LedgerStore][logger][LockAccounts] accounts %v locked %d err %v", accountIDs, len(accounts), err)

	return accounts, err
}

func (l *loggingTx) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	err := l.tx.SetBalance(ctx, accountID, balance)
	l.logger.Infof("[LedgerStore][logger][SetBalance] account %d balance %s err %v", accountID, balance, err)

	return err
}

func (l *loggingTx) UpdateTokenOwner(ctx context.Context, tokenID, ownerAccountID int64) error {
	err := l.tx.UpdateTokenOwner(ctx, tokenID, ownerAccountID)
	l.logger.Infof("[LedgerStore][logger][UpdateTokenOwner] token %d owner %d err %v", tokenID, ownerAccountID, err)

	return err
}

func (l *loggingTx) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	err := l.tx.InsertLedgerEntry(ctx, entry)
	l.logger.Infof("[LedgerStore][logger][InsertLedgerEntry] token %d seller %d buyer %d amount %s reference %s err %v",
		entry.TokenID, entry.SellerID, entry.BuyerID, entry.Amount, entry.Reference, err)

	return err
}

func (l *loggingTx) InsertNotification(ctx context.Context, accountID int64, message string) (*model.Notification, error) {
	n, err := l.tx.InsertNotification(ctx, accountID, message)
	l.logger.Infof("[LedgerStore][logger][InsertNotification] account %d message %q err %v", accountID, message, err)

	return n, err
}
