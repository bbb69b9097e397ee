// Package model holds the ledger entities shared by stores and services.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a registered identity with a monetary balance.
type Account struct {
	ID             int64           `json:"id"`
	DisplayName    string          `json:"displayName"`
	Email          string          `json:"email,omitempty"`
	DepositAddress string          `json:"depositAddress"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Item is a sellable listing.
type Item struct {
	ID             int64           `json:"id"`
	OwnerAccountID int64           `json:"ownerAccountId"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Token is the single transferable ownership unit bound to an item.
type Token struct {
	ID             int64     `json:"id"`
	ItemID         int64     `json:"itemId"`
	OwnerAccountID int64     `json:"ownerAccountId"`
	MintedBy       int64     `json:"mintedBy"`
	MintedAt       time.Time `json:"mintedAt"`
}

// OwnedToken is a token joined with the title and price of its item.
type OwnedToken struct {
	Token
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

// LedgerEntry records one completed settlement. Entries are never updated.
type LedgerEntry struct {
	ID        int64           `json:"id"`
	TokenID   int64           `json:"tokenId"`
	ItemID    int64           `json:"itemId"`
	SellerID  int64           `json:"sellerId"`
	BuyerID   int64           `json:"buyerId"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Notification struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"accountId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Wallet is the read model of one account.
type Wallet struct {
	Account       *Account        `json:"account"`
	Tokens        []*OwnedToken   `json:"tokens"`
	LedgerEntries []*LedgerEntry  `json:"ledgerEntries"`
	Notifications []*Notification `json:"notifications"`
}
