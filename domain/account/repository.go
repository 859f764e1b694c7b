package account

import "context"

// Repository defines read access to stored account definitions.
type Repository interface {
	// FindAll retrieves all accounts in their stored order.
	FindAll(ctx context.Context) ([]*Account, error)
}
