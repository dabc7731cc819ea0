package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a wallet transaction.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// TransactionStatus records the outcome of a wallet transaction.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is one entry of the append-only wallet log. Amount is always
// positive; Type carries the direction. BalanceAfter snapshots the projected
// balance at append time.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	WalletID     uuid.UUID         `json:"wallet_id"`
	Type         TransactionType   `json:"type"`
	Amount       decimal.Decimal   `json:"amount"`
	Description  string            `json:"description,omitempty"`
	Reference    string            `json:"reference,omitempty"`
	Status       TransactionStatus `json:"status"`
	BalanceAfter decimal.Decimal   `json:"balance_after"`
	CreatedAt    time.Time         `json:"created_at"`
}
