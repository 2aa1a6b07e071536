package aggregator

import "context"

// ClientInterface defines the two aggregator endpoints the sync engines
// depend on: a paginated transaction changefeed and a full-snapshot holdings
// fetch.
type ClientInterface interface {
	// FetchTransactionsPage requests the next page of the changefeed for one
	// account. An empty cursor means first-ever sync.
	FetchTransactionsPage(ctx context.Context, accessToken, accountID, cursor string) (*TransactionsPage, error)

	// FetchHoldings returns current holdings and security metadata for all
	// accounts under the connection the token belongs to.
	FetchHoldings(ctx context.Context, accessToken string) (*HoldingsResponse, error)
}
