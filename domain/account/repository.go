package account

import "context"

// Repository abstracts where account credentials come from.
type Repository interface {
	// FindAll retrieves all configured accounts.
	FindAll(ctx context.Context) ([]Account, error)
}
