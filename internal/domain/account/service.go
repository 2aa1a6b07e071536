package account

import (
	"context"
	"fmt"
)

// Service is the account directory consumed by the sync engines. It is a
// read dependency: account lifecycle is owned by the onboarding flow.
type Service struct {
	repo Repository
}

// NewService creates a new account directory service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListByConnectionID returns every account under one connection.
func (s *Service) ListByConnectionID(ctx context.Context, connectionID string) ([]*Account, error) {
	accounts, err := s.repo.ListByConnectionID(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for connection %s: %w", connectionID, err)
	}
	return accounts, nil
}

// ListInvestmentAccounts returns the subset of a connection's accounts that
// carry investment holdings.
func (s *Service) ListInvestmentAccounts(ctx context.Context, connectionID string) ([]*Account, error) {
	accounts, err := s.ListByConnectionID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	investment := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		if a.IsInvestment() {
			investment = append(investment, a)
		}
	}
	return investment, nil
}

// ListByUserID returns all accounts owned by a user.
func (s *Service) ListByUserID(ctx context.Context, userID int64) ([]*Account, error) {
	accounts, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for user %d: %w", userID, err)
	}
	return accounts, nil
}
