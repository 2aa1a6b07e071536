// Package transaction defines the transaction model and its storage contract.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction directions. The aggregator reports amounts unsigned with an
// explicit direction flag.
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// Transaction belongs to one account. The aggregator-assigned ID is the
// natural key used for idempotent upsert.
type Transaction struct {
	ID              string
	AccountID       string
	Amount          decimal.Decimal
	Direction       string
	Description     string
	Category        *string
	TransactionDate time.Time
	Pending         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UpsertParams carries the fields written on insert-or-update.
type UpsertParams struct {
	ID              string
	AccountID       string
	Amount          decimal.Decimal
	Direction       string
	Description     string
	Category        *string
	TransactionDate time.Time
	Pending         bool
}
