package accounts

import (
	"context"
	"time"
)

// Repository is the credential store consumed by the Service. All operations
// are atomic per-account; concurrent writers to the same username serialize
// through the store.
//
// Error contract: lookups return shared.ErrorNotFound for unknown usernames,
// Create returns shared.ErrorAlreadyExists on a username conflict, and
// GetResetChallenge returns (nil, nil) for an existing account with no
// pending challenge.
type Repository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]*Profile, error)
	UpdatePasswordHash(ctx context.Context, username, newHash string) error
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
	SetResetChallenge(ctx context.Context, username, codeHash string, requestedAt time.Time) error
	ClearResetChallenge(ctx context.Context, username string) error
	GetResetChallenge(ctx context.Context, username string) (*ResetChallenge, error)
}
