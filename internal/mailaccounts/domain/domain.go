package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider identifies the mailbox vendor an account was linked with.
type Provider string

const (
	ProviderGmail Provider = "gmail"
	ProviderM365  Provider = "m365"
)

// Providers lists the supported providers in lookup order.
var Providers = []Provider{ProviderGmail, ProviderM365}

func (p Provider) Valid() bool { return p == ProviderGmail || p == ProviderM365 }

// Account is a linked mailbox. Tokens are held encrypted; only the vault
// turns them back into plaintext.
type Account struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Provider        Provider
	Email           string
	AccessTokenEnc  []byte
	RefreshTokenEnc []byte
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Expired reports whether the access token must be refreshed before use.
// A missing expiry counts as expired.
func (a Account) Expired(now time.Time) bool {
	return a.ExpiresAt == nil || !a.ExpiresAt.After(now)
}

// Tokens is a replacement credential set for an account.
type Tokens struct {
	AccessTokenEnc  []byte
	RefreshTokenEnc []byte
	ExpiresAt       *time.Time
}

// LockedFunc inspects the locked, freshly read row. Returning nil tokens
// keeps the row as is; returning an error rolls back without writing.
type LockedFunc func(current Account) (*Tokens, error)

type Repository interface {
	// Upsert inserts or replaces the tokens of the (user, provider, email)
	// account. A nil RefreshTokenEnc keeps the stored refresh token.
	Upsert(ctx context.Context, a Account) (Account, error)
	List(ctx context.Context, user uuid.UUID) ([]Account, error)
	// First returns the user's first account ordered by provider, optionally
	// restricted to one provider (empty means any).
	First(ctx context.Context, user uuid.UUID, provider Provider) (Account, error)
	Delete(ctx context.Context, user, id uuid.UUID) error
	// RefreshLocked runs fn while holding a row lock on the account and
	// persists the tokens it returns in the same transaction.
	RefreshLocked(ctx context.Context, id uuid.UUID, fn LockedFunc) (Account, error)
}
