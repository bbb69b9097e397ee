package sql

import (
	"context"
	"database/sql"
	"sort"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	customtime "github.com/nomadmarket/nomadledger/model/time"
	"github.com/shopspring/decimal"
)

type sqlTx struct {
	reader
}

func (t *sqlTx) InsertToken(ctx context.Context, itemID, ownerAccountID, mintedBy int64) (*model.Token, error) {
	q := `
		INSERT INTO tokens (
		 item_id
		,owner_account_id
		,minted_by
		) VALUES (
		 $1
		,$2
		,$3
		)
		RETURNING id, minted_at
	`

	var mintedAt customtime.CustomTime

	token := &model.Token{
		ItemID:         itemID,
		OwnerAccountID: ownerAccountID,
		MintedBy:       mintedBy,
	}

	if err := t.q.QueryRowContext(ctx, q, itemID, ownerAccountID, mintedBy).Scan(&token.ID, &mintedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.NewConflictError("token for item %d already exists", itemID, err)
		}

		return nil, storageError("failed to insert token for item %d", itemID, err)
	}

	token.MintedAt = mintedAt.Time

	prometheusLedgerTokensMinted.Inc()

	return token, nil
}

func (t *sqlTx) InsertTokenIfAbsent(ctx context.Context, itemID, ownerAccountID, mintedBy int64) (bool, error) {
	q := `
		INSERT INTO tokens (
		 item_id
		,owner_account_id
		,minted_by
		) VALUES (
		 $1
		,$2
		,$3
		)
		ON CONFLICT (item_id) DO NOTHING
	`

	result, err := t.q.ExecContext(ctx, q, itemID, ownerAccountID, mintedBy)
	if err != nil {
		return false, storageError("failed to insert token for item %d", itemID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageError("failed to insert token for item %d", itemID, err)
	}

	if affected > 0 {
		prometheusLedgerTokensMinted.Inc()
	}

	return affected > 0, nil
}

func (t *sqlTx) GetTokenByItemForUpdate(ctx context.Context, itemID int64) (*model.Token, error) {
	return t.getTokenByItem(ctx, itemID, true)
}

func (t *sqlTx) LockAccounts(ctx context.Context, accountIDs ...int64) (map[int64]*model.Account, error) {
	ids := lockOrder(accountIDs)

	q := t.lockClause(`SELECT` + accountColumns + `FROM accounts WHERE id = $1`)

	accounts := make(map[int64]*model.Account, len(ids))

	for _, id := range ids {
		account, err := scanAccount(t.q.QueryRowContext(ctx, q, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, errors.NewNotFoundError("account %d not found", id)
			}

			return nil, storageError("failed to lock account %d", id, err)
		}

		accounts[id] = account
	}

	return accounts, nil
}

// lockOrder returns the distinct ids in ascending order. Every transaction that
// locks more than one account takes the locks in this order, so two settlements
// in opposite directions cannot wait on each other.
func lockOrder(accountIDs []int64) []int64 {
	ids := make([]int64, 0, len(accountIDs))
	seen := make(map[int64]struct{}, len(accountIDs))

	for _, id := range accountIDs {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (t *sqlTx) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return errors.NewInvalidArgumentError("balance of account %d cannot be negative: %s", accountID, balance)
	}

	q := `
		UPDATE accounts
		SET balance = $1
		WHERE id = $2
	`

	result, err := t.q.ExecContext(ctx, q, balance, accountID)
	if err != nil {
		return storageError("failed to set balance of account %d", accountID, err)
	}

	return requireOneRow(result, "account %d not updated", accountID)
}

func (t *sqlTx) UpdateTokenOwner(ctx context.Context, tokenID, ownerAccountID int64) error {
	q := `
		UPDATE tokens
		SET owner_account_id = $1
		WHERE id = $2
	`

	result, err := t.q.ExecContext(ctx, q, ownerAccountID, tokenID)
	if err != nil {
		return storageError("failed to update owner of token %d", tokenID, err)
	}

	return requireOneRow(result, "token %d not updated", tokenID)
}

func (t *sqlTx) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	q := `
		INSERT INTO ledger_entries (
		 token_id
		,seller_id
		,buyer_id
		,amount
		,reference
		) VALUES (
		 $1
		,$2
		,$3
		,$4
		,$5
		)
		RETURNING id, created_at
	`

	var createdAt customtime.CustomTime

	err := t.q.QueryRowContext(ctx, q, entry.TokenID, entry.SellerID, entry.BuyerID, entry.Amount, entry.Reference).Scan(&entry.ID, &createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			// references are generated server side, a collision is not the caller's fault
			return storageError("ledger reference %s already used", entry.Reference, err)
		}

		return storageError("failed to insert ledger entry for token %d", entry.TokenID, err)
	}

	entry.CreatedAt = createdAt.Time

	return nil
}

func (t *sqlTx) InsertNotification(ctx context.Context, accountID int64, message string) (*model.Notification, error) {
	q := `
		INSERT INTO notifications (
		 account_id
		,message
		) VALUES (
		 $1
		,$2
		)
		RETURNING id, created_at
	`

	var createdAt customtime.CustomTime

	n := &model.Notification{
		AccountID: accountID,
		Message:   message,
	}

	if err := t.q.QueryRowContext(ctx, q, accountID, message).Scan(&n.ID, &createdAt); err != nil {
		return nil, storageError("failed to insert notification for account %d", accountID, err)
	}

	n.CreatedAt = createdAt.Time

	return n, nil
}

func requireOneRow(result sql.Result, message string, params ...interface{}) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return storageError(message, append(params, err)...)
	}

	if affected != 1 {
		return errors.NewNotFoundError(message, params...)
	}

	return nil
}
