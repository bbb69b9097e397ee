package sql

import (
	"context"
	"database/sql"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	customtime "github.com/nomadmarket/nomadledger/model/time"
	"github.com/nomadmarket/nomadledger/util"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *usql.DB and *usql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type reader struct {
	q      querier
	engine util.SQLEngine
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `
	 id
	,display_name
	,email
	,deposit_address
	,balance
	,created_at
`

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account   model.Account
		email     sql.NullString
		createdAt customtime.CustomTime
	)

	if err := row.Scan(&account.ID, &account.DisplayName, &email, &account.DepositAddress, &account.Balance, &createdAt); err != nil {
		return nil, err
	}

	account.Email = email.String
	account.CreatedAt = createdAt.Time

	return &account, nil
}

func (r reader) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	q := `SELECT` + accountColumns + `FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRowContext(ctx, q, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("account %d not found", accountID)
		}

		return nil, storageError("failed to read account %d", accountID, err)
	}

	return account, nil
}

func (r reader) GetItem(ctx context.Context, itemID int64) (*model.Item, error) {
	q := `
		SELECT
		 id
		,owner_account_id
		,title
		,description
		,price
		,created_at
		FROM items
		WHERE id = $1
	`

	var (
		item        model.Item
		description sql.NullString
		createdAt   customtime.CustomTime
	)

	err := r.q.QueryRowContext(ctx, q, itemID).Scan(&item.ID, &item.OwnerAccountID, &item.Title, &description, &item.Price, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("item %d not found", itemID)
		}

		return nil, storageError("failed to read item %d", itemID, err)
	}

	item.Description = description.String
	item.CreatedAt = createdAt.Time

	return &item, nil
}

const tokenColumns = `
	 id
	,item_id
	,owner_account_id
	,minted_by
	,minted_at
`

func scanToken(row rowScanner, extra ...interface{}) (*model.Token, error) {
	var (
		token    model.Token
		owner    sql.NullInt64
		mintedBy sql.NullInt64
		mintedAt customtime.CustomTime
	)

	dest := append([]interface{}{&token.ID, &token.ItemID, &owner, &mintedBy, &mintedAt}, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	// OwnerAccountID stays 0 for a token without an owner, callers fall back to the item owner
	token.OwnerAccountID = owner.Int64
	token.MintedBy = mintedBy.Int64
	token.MintedAt = mintedAt.Time

	return &token, nil
}

func (r reader) GetTokenByItem(ctx context.Context, itemID int64) (*model.Token, error) {
	return r.getTokenByItem(ctx, itemID, false)
}

func (r reader) getTokenByItem(ctx context.Context, itemID int64, forUpdate bool) (*model.Token, error) {
	q := `SELECT` + tokenColumns + `FROM tokens WHERE item_id = $1`

	if forUpdate {
		q = r.lockClause(q)
	}

	token, err := scanToken(r.q.QueryRowContext(ctx, q, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("token for item %d not found", itemID)
		}

		return nil, storageError("failed to read token for item %d", itemID, err)
	}

	return token, nil
}

func (r reader) ListOwnedTokens(ctx context.Context, accountID int64) ([]*model.OwnedToken, error) {
	q := `
		SELECT
		 t.id
		,t.item_id
		,t.owner_account_id
		,t.minted_by
		,t.minted_at
		,i.title
		,i.price
		FROM tokens t
		JOIN items i ON i.id = t.item_id
		WHERE t.owner_account_id = $1
		ORDER BY t.minted_at DESC, t.id DESC
	`

	rows, err := r.q.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, storageError("failed to list tokens of account %d", accountID, err)
	}

	defer rows.Close()

	tokens := make([]*model.OwnedToken, 0)

	for rows.Next() {
		var (
			title string
			price decimal.Decimal
		)

		token, err := scanToken(rows, &title, &price)
		if err != nil {
			return nil, storageError("failed to scan token of account %d", accountID, err)
		}

		tokens = append(tokens, &model.OwnedToken{Token: *token, Title: title, Price: price})
	}

	if err = rows.Err(); err != nil {
		return nil, storageError("failed to list tokens of account %d", accountID, err)
	}

	return tokens, nil
}

func (r reader) ListLedgerEntries(ctx context.Context, accountID int64) ([]*model.LedgerEntry, error) {
	q := `
		SELECT
		 l.id
		,l.token_id
		,t.item_id
		,l.seller_id
		,l.buyer_id
		,l.amount
		,l.reference
		,l.created_at
		FROM ledger_entries l
		JOIN tokens t ON t.id = l.token_id
		WHERE l.buyer_id = $1 OR l.seller_id = $1
		ORDER BY l.created_at DESC, l.id DESC
	`

	rows, err := r.q.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, storageError("failed to list ledger entries of account %d", accountID, err)
	}

	defer rows.Close()

	entries := make([]*model.LedgerEntry, 0)

	for rows.Next() {
		var (
			entry     model.LedgerEntry
			createdAt customtime.CustomTime
		)

		if err = rows.Scan(&entry.ID, &entry.TokenID, &entry.ItemID, &entry.SellerID, &entry.BuyerID, &entry.Amount, &entry.Reference, &createdAt); err != nil {
			return nil, storageError("failed to scan ledger entry of account %d", accountID, err)
		}

		entry.CreatedAt = createdAt.Time
		entries = append(entries, &entry)
	}

	if err = rows.Err(); err != nil {
		return nil, storageError("failed to list ledger entries of account %d", accountID, err)
	}

	return entries, nil
}

func (r reader) ListNotifications(ctx context.Context, accountID int64) ([]*model.Notification, error) {
	q := `
		SELECT
		 id
		,account_id
		,message
		,created_at
		FROM notifications
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, storageError("failed to list notifications of account %d", accountID, err)
	}

	defer rows.Close()

	notifications := make([]*model.Notification, 0)

	for rows.Next() {
		var (
			n         model.Notification
			createdAt customtime.CustomTime
		)

		if err = rows.Scan(&n.ID, &n.AccountID, &n.Message, &createdAt); err != nil {
			return nil, storageError("failed to scan notification of account %d", accountID, err)
		}

		n.CreatedAt = createdAt.Time
		notifications = append(notifications, &n)
	}

	if err = rows.Err(); err != nil {
		return nil, storageError("failed to list notifications of account %d", accountID, err)
	}

	return notifications, nil
}

// lockClause appends the row lock on engines that support one. SQLite write
// transactions already hold the database lock.
func (r reader) lockClause(q string) string {
	if r.engine == util.Postgres {
		return q + ` FOR UPDATE`
	}

	return q
}
