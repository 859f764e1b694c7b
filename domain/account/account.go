// Package account defines the Account entity and its credential types.
package account

import "fmt"

// DefaultProvider is used when an account does not name a provider.
const DefaultProvider = "anyrouter"

// Account represents a configured check-in account.
type Account struct {
	// Index is the 0-based position in the configured account list.
	// It drives default naming and the balance snapshot key.
	Index int `json:"-" yaml:"-"`

	// Name is an optional display name override.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Provider references a provider definition by key.
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// Credentials holds the user cookies in either mapping or delimited form.
	Credentials Credentials `json:"cookies" yaml:"cookies"`

	// APIUser is the user identifier sent in the provider's identifier header.
	APIUser string `json:"api_user" yaml:"api_user"`
}

// DisplayName returns the configured name or "Account <n>" with a 1-based n.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("Account %d", a.Index+1)
}

// BalanceKey returns the key used for this account in balance snapshots.
func (a *Account) BalanceKey() string {
	return fmt.Sprintf("account_%d", a.Index+1)
}

// ProviderKey returns the provider key, falling back to DefaultProvider.
func (a *Account) ProviderKey() string {
	if a.Provider == "" {
		return DefaultProvider
	}
	return a.Provider
}

// Validate reports configuration problems that make the whole account list
// unusable. Unusable cookies are not checked here; they fail only their own
// account at check-in time.
func (a *Account) Validate() error {
	if a.APIUser == "" {
		return fmt.Errorf("%s: %w", a.DisplayName(), ErrMissingAPIUser)
	}
	return nil
}

// Clone creates a deep copy of the account.
func (a *Account) Clone() *Account {
	clone := *a
	clone.Credentials = a.Credentials.clone()
	return &clone
}

// Indexed assigns positional indexes to accounts in their configured order.
func Indexed(accounts []*Account) []*Account {
	for i, acc := range accounts {
		acc.Index = i
	}
	return accounts
}
