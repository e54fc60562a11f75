package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Accounts(ctx context.Context) AccountStore
	Profiles(ctx context.Context) ProfileStore
}

// AccountStore manages identity records.
type AccountStore interface {
	Create(ctx context.Context, a *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// ProfileStore manages profiles keyed by account id.
type ProfileStore interface {
	Create(ctx context.Context, p *Profile) error
	Find(ctx context.Context, id string) (*Profile, error)
	SetRole(ctx context.Context, id, role, requestStatus string) (*Profile, error)
}
