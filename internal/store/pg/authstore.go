package pg

import (
	"context"
	"database/sql"
	"errors"

	"campushub.org/internal/auth"
)

var _ auth.Store = (*AuthStore)(nil)

// AuthStore implements auth.Store using PostgreSQL.
type AuthStore struct {
	db *sql.DB
}

func NewAuthStore(db *sql.DB) *AuthStore {
	return &AuthStore{db: db}
}

func (s *AuthStore) Accounts(context.Context) auth.AccountStore { return &accountStore{db: s.db} }
func (s *AuthStore) Profiles(context.Context) auth.ProfileStore { return &profileStore{db: s.db} }

type accountStore struct{ db *sql.DB }

func (s *accountStore) Create(ctx context.Context, a *auth.Account) error {
	_, err := s.db.ExecContext(ctx,
		`insert into accounts(id, email, password_hash, created_at) values($1,$2,$3,$4)`,
		a.ID, a.Email, a.PasswordHash, a.CreatedAt,
	)
	return err
}

func (s *accountStore) Find(ctx context.Context, id string) (*auth.Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, email, password_hash, created_at from accounts where id=$1`, id))
}

func (s *accountStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, email, password_hash, created_at from accounts where email=$1`, email))
}

func (s *accountStore) scanOne(row *sql.Row) (*auth.Account, error) {
	var a auth.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

type profileStore struct{ db *sql.DB }

const profileColumns = `id, email, role, organizer_request_status, first_name, last_name, created_at`

func (s *profileStore) Create(ctx context.Context, p *auth.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		insert into profiles(id, email, role, organizer_request_status, first_name, last_name, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.Email, p.Role, p.OrganizerRequestStatus, p.FirstName, p.LastName, p.CreatedAt)
	return err
}

func (s *profileStore) Find(ctx context.Context, id string) (*auth.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`select `+profileColumns+` from profiles where id=$1`, id))
}

func (s *profileStore) SetRole(ctx context.Context, id, role, requestStatus string) (*auth.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `
		update profiles set role=$2, organizer_request_status=$3
		where id=$1
		returning `+profileColumns,
		id, role, requestStatus))
}

func scanProfile(row *sql.Row) (*auth.Profile, error) {
	var p auth.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Role, &p.OrganizerRequestStatus,
		&p.FirstName, &p.LastName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
