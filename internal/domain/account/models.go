// Package account holds the account directory: which accounts belong to
// which connection and user.
package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types as reported by the aggregator.
const (
	TypeDepository = "depository"
	TypeCredit     = "credit"
	TypeInvestment = "investment"
	TypeLoan       = "loan"
)

// Account belongs to exactly one connection and one user. Its type decides
// which sync domains apply: investment accounts get holdings sync on top of
// transaction sync.
type Account struct {
	ID             string // aggregator account id
	ConnectionID   string
	UserID         int64
	Name           string
	Type           string
	Subtype        string
	CurrencyCode   string
	CurrentBalance decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsInvestment reports whether holdings sync applies to this account.
func (a *Account) IsInvestment() bool {
	return a.Type == TypeInvestment
}
