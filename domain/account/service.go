package account

import (
	"context"
	"errors"
	"fmt"
)

// Common errors for account configuration.
var (
	ErrNoAccounts     = errors.New("no accounts configured")
	ErrMissingAPIUser = errors.New("api_user is required")
)

// Service provides access to the ordered account list.
type Service struct {
	repo Repository
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListAccounts retrieves and validates all accounts.
// The repository order is kept and Index is assigned from it.
func (s *Service) ListAccounts(ctx context.Context) ([]*Account, error) {
	accounts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	Indexed(accounts)
	for _, acc := range accounts {
		if err := acc.Validate(); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// StaticRepository serves a fixed account list, typically decoded from config.
type StaticRepository struct {
	accounts []*Account
}

// NewStaticRepository creates a repository over the given accounts.
func NewStaticRepository(accounts []*Account) *StaticRepository {
	return &StaticRepository{accounts: accounts}
}

// FindAll returns deep copies of the configured accounts.
func (r *StaticRepository) FindAll(ctx context.Context) ([]*Account, error) {
	out := make([]*Account, len(r.accounts))
	for i, acc := range r.accounts {
		out[i] = acc.Clone()
	}
	return out, nil
}

var _ Repository = (*StaticRepository)(nil)
