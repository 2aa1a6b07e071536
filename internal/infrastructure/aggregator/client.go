// Package aggregator implements the HTTP client for the external account
// aggregation API.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	sandboxBaseURL    = "https://sandbox.api.ledgerfeed.io/v1"
	productionBaseURL = "https://api.ledgerfeed.io/v1"

	transactionsSyncPath = "/transactions/sync"
	holdingsPath         = "/investments/holdings"

	defaultTimeout = 120 * time.Second // large holdings snapshots are slow
)

// ErrUnauthorized is returned when the aggregator rejects the access token.
// Callers should flag the connection for relink and stop syncing it.
var ErrUnauthorized = errors.New("aggregator rejected access token")

// Client handles communication with the aggregator API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ ClientInterface = (*Client)(nil)

// NewClient creates a client for the given environment ("sandbox" or
// "production").
func NewClient(environment string) *Client {
	base := sandboxBaseURL
	if environment == "production" {
		base = productionBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    base,
	}
}

// TransactionsPage is one page of the incremental changefeed. The account
// balance rides along on some pages; empty means not reported.
type TransactionsPage struct {
	Added          []Transaction        `json:"added"`
	Modified       []Transaction        `json:"modified"`
	Removed        []RemovedTransaction `json:"removed"`
	NextCursor     string               `json:"next_cursor"`
	HasMore        bool                 `json:"has_more"`
	AccountBalance string               `json:"account_balance,omitempty"`
}

// Size returns the number of records carried by the page.
func (p *TransactionsPage) Size() int {
	return len(p.Added) + len(p.Modified) + len(p.Removed)
}

// GetAccountBalance parses the balance string. Second return is false when
// the page carried no balance.
func (p *TransactionsPage) GetAccountBalance() (decimal.Decimal, bool, error) {
	if p.AccountBalance == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(p.AccountBalance)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse account balance %q: %w", p.AccountBalance, err)
	}
	return d, true, nil
}

// Transaction is a transaction record as returned by the aggregator.
// Amounts come back as strings and are parsed on demand.
type Transaction struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	AmountString string `json:"amount"`
	Direction    string `json:"direction"` // "debit" or "credit"
	Description  string `json:"description"`
	Category     string `json:"category,omitempty"`
	DateString   string `json:"date"` // YYYY-MM-DD
	Pending      bool   `json:"pending"`
}

// GetAmount parses the amount string into a decimal.
func (t *Transaction) GetAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(t.AmountString)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", t.AmountString, err)
	}
	return d, nil
}

// GetDate parses the transaction date.
func (t *Transaction) GetDate() (time.Time, error) {
	d, err := time.Parse("2006-01-02", t.DateString)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", t.DateString, err)
	}
	return d, nil
}

// RemovedTransaction identifies a transaction the aggregator has retracted.
type RemovedTransaction struct {
	ID string `json:"id"`
}

// HoldingsResponse is the full holdings snapshot for one connection.
type HoldingsResponse struct {
	Holdings   []Holding  `json:"holdings"`
	Securities []Security `json:"securities"`
}

// Holding is one position as returned by the aggregator.
type Holding struct {
	AccountID       string `json:"account_id"`
	SecurityID      string `json:"security_id"`
	QuantityString  string `json:"quantity"`
	CostBasisString string `json:"cost_basis"`
	PriceString     string `json:"price"`
	PriceAsOf       string `json:"price_as_of"` // YYYY-MM-DD
}

// GetQuantity parses the quantity string.
func (h *Holding) GetQuantity() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(h.QuantityString)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse quantity %q: %w", h.QuantityString, err)
	}
	return d, nil
}

// GetCostBasis parses the cost basis string. An empty value means the
// aggregator does not know it and is reported as zero.
func (h *Holding) GetCostBasis() (decimal.Decimal, error) {
	if h.CostBasisString == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(h.CostBasisString)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse cost basis %q: %w", h.CostBasisString, err)
	}
	return d, nil
}

// GetPrice parses the price string.
func (h *Holding) GetPrice() (decimal.Decimal, error) {
	if h.PriceString == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(h.PriceString)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse price %q: %w", h.PriceString, err)
	}
	return d, nil
}

// GetPriceAsOf parses the price timestamp; zero time when absent.
func (h *Holding) GetPriceAsOf() (time.Time, error) {
	if h.PriceAsOf == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", h.PriceAsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse price_as_of %q: %w", h.PriceAsOf, err)
	}
	return t, nil
}

// Security is instrument metadata shared by holdings.
type Security struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type transactionsSyncRequest struct {
	AccountID string `json:"account_id"`
	Cursor    string `json:"cursor,omitempty"`
}

// FetchTransactionsPage requests the next changefeed page for an account.
func (c *Client) FetchTransactionsPage(ctx context.Context, accessToken, accountID, cursor string) (*TransactionsPage, error) {
	var page TransactionsPage
	err := c.post(ctx, transactionsSyncPath, accessToken, transactionsSyncRequest{
		AccountID: accountID,
		Cursor:    cursor,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchHoldings returns the holdings snapshot for all accounts under the
// connection the token belongs to.
func (c *Client) FetchHoldings(ctx context.Context, accessToken string) (*HoldingsResponse, error) {
	var resp HoldingsResponse
	if err := c.post(ctx, holdingsPath, accessToken, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path, accessToken string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("aggregator returned status %d for %s: %s", resp.StatusCode, path, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
