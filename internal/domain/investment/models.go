// Package investment defines holdings and securities for investment accounts.
package investment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Security is aggregator-provided metadata about one instrument, shared by
// holdings across accounts.
type Security struct {
	ID     string
	Symbol string
	Name   string
}

// Holding is one position in one account. Holdings are replaced wholesale
// per account on every successful snapshot sync; there is no incremental
// diffing.
type Holding struct {
	AccountID  string
	SecurityID string
	Symbol     string
	Name       string
	Quantity   decimal.Decimal
	CostBasis  decimal.Decimal
	Price      decimal.Decimal
	PriceAsOf  time.Time
	UpdatedAt  time.Time
}
