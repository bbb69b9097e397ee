package sql

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	customtime "github.com/nomadmarket/nomadledger/model/time"
	"github.com/shopspring/decimal"
)

const depositAddressPrefix = "So"

// NewDepositAddress returns the prefix followed by 16 random bytes, hex encoded.
func NewDepositAddress() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.NewProcessingError("failed to generate deposit address", err)
	}

	return depositAddressPrefix + hex.EncodeToString(b), nil
}

func (s *Store) CreateAccount(ctx context.Context, displayName, email string, balance decimal.Decimal) (*model.Account, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errors.NewInvalidArgumentError("display name is required")
	}

	if balance.IsNegative() {
		return nil, errors.NewInvalidArgumentError("opening balance cannot be negative: %s", balance)
	}

	address, err := NewDepositAddress()
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO accounts (
		 display_name
		,email
		,deposit_address
		,balance
		) VALUES (
		 $1
		,$2
		,$3
		,$4
		)
		RETURNING id, created_at
	`

	var createdAt customtime.CustomTime

	account := &model.Account{
		DisplayName:    displayName,
		Email:          email,
		DepositAddress: address,
		Balance:        balance,
	}

	if err = s.db.QueryRowContext(ctx, q, displayName, nullString(email), address, balance).Scan(&account.ID, &createdAt); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.NewConflictError("deposit address %s already exists", address, err)
		}

		return nil, storageError("failed to create account", err)
	}

	account.CreatedAt = createdAt.Time

	return account, nil
}

func (s *Store) CreateItem(ctx context.Context, ownerAccountID int64, title, description string, price decimal.Decimal) (*model.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.NewInvalidArgumentError("title is required")
	}

	if price.IsNegative() {
		return nil, errors.NewInvalidArgumentError("price cannot be negative: %s", price)
	}

	if _, err := s.GetAccount(ctx, ownerAccountID); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO items (
		 owner_account_id
		,title
		,description
		,price
		) VALUES (
		 $1
		,$2
		,$3
		,$4
		)
		RETURNING id, created_at
	`

	var createdAt customtime.CustomTime

	item := &model.Item{
		OwnerAccountID: ownerAccountID,
		Title:          title,
		Description:    description,
		Price:          price,
	}

	if err := s.db.QueryRowContext(ctx, q, ownerAccountID, title, nullString(description), price).Scan(&item.ID, &createdAt); err != nil {
		return nil, storageError("failed to create item", err)
	}

	item.CreatedAt = createdAt.Time

	return item, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}
