// Package anthropic implements the AI categorization collaborator on the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tern/internal/domain/budget"
	"tern/internal/domain/transaction"
)

const (
	defaultModel  = "claude-sonnet-4-20250514"
	maxTokens     = 2048
	systemPrompt  = "You are a transaction categorization engine for a personal finance application. You reply with JSON only, no prose."
	promptPreface = "Assign a spending category to each transaction below, following the user's budgeting rules. " +
		"Reply with a JSON array of objects {\"id\": string, \"category\": string}. " +
		"Use an empty category when no rule applies."
)

// Categorizer implements budget.Categorizer.
type Categorizer struct {
	client anthropic.Client
	model  anthropic.Model
}

var _ budget.Categorizer = (*Categorizer)(nil)

// NewCategorizer creates a categorizer. model may be empty to use the
// default.
func NewCategorizer(apiKey, model string) *Categorizer {
	if model == "" {
		model = defaultModel
	}
	return &Categorizer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

type categorized struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

// Categorize asks the model for one category per transaction.
func (c *Categorizer) Categorize(ctx context.Context, txs []*transaction.Transaction, rules string) ([]budget.CategorizedTransaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	prompt, err := buildPrompt(txs, rules)
	if err != nil {
		return nil, err
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return parseResponse(text.String(), txs)
}

type promptTransaction struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Direction   string `json:"direction"`
	Date        string `json:"date"`
}

func buildPrompt(txs []*transaction.Transaction, rules string) (string, error) {
	items := make([]promptTransaction, 0, len(txs))
	for _, tx := range txs {
		items = append(items, promptTransaction{
			ID:          tx.ID,
			Description: tx.Description,
			Amount:      tx.Amount.String(),
			Direction:   tx.Direction,
			Date:        tx.TransactionDate.Format("2006-01-02"),
		})
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transactions: %w", err)
	}

	var b strings.Builder
	b.WriteString(promptPreface)
	b.WriteString("\n\nRules:\n")
	b.WriteString(rules)
	b.WriteString("\n\nTransactions:\n")
	b.Write(payload)
	return b.String(), nil
}

// parseResponse decodes the model's JSON array, tolerating surrounding
// prose or a markdown fence, and drops ids it was never asked about.
func parseResponse(text string, txs []*transaction.Transaction) ([]budget.CategorizedTransaction, error) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in model response")
	}

	var decoded []categorized
	if err := json.Unmarshal([]byte(text[start:end+1]), &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	known := make(map[string]bool, len(txs))
	for _, tx := range txs {
		known[tx.ID] = true
	}

	results := make([]budget.CategorizedTransaction, 0, len(decoded))
	for _, d := range decoded {
		if !known[d.ID] {
			continue
		}
		results = append(results, budget.CategorizedTransaction{
			TransactionID: d.ID,
			Category:      strings.TrimSpace(d.Category),
		})
	}
	return results, nil
}
