package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"campushub.org/internal/ids"
	"campushub.org/internal/obs"
)

const (
	issuer          = "campushub"
	defaultTokenTTL = 24 * time.Hour
	resetTokenTTL   = time.Hour
)

// Mailer delivers password-reset mail. The production implementation talks to
// a mail provider; tests and local runs use LogMailer.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset mail to the structured log instead of sending it.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	obs.LogRequest(map[string]any{
		"level": "info",
		"msg":   "password_reset_issued",
		"email": email,
		"token": token,
	})
	return nil
}

// ProviderIdentity is the external identity attested by a third-party
// sign-in assertion.
type ProviderIdentity struct {
	Provider  string
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// IdentityVerifier validates a third-party sign-in assertion (for example an
// OIDC id token) and returns the identity it attests. Implementations talk
// to the provider; tests use static fakes.
type IdentityVerifier interface {
	Verify(ctx context.Context, provider, assertion string) (ProviderIdentity, error)
}

// Service owns identity: sign-up, sign-in, token verification, password
// reset, and the organizer upgrade. It is an explicit, injectable object so
// tests can build isolated instances.
type Service struct {
	store    Store
	secret   []byte
	now      func() time.Time
	tokenTTL time.Duration
	mailer   Mailer
	verifier IdentityVerifier
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithTokenTTL configures session token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
		return nil
	}
}

// WithMailer overrides the password-reset mailer.
func WithMailer(m Mailer) ServiceOption {
	return func(s *Service) error {
		if m != nil {
			s.mailer = m
		}
		return nil
	}
}

// WithIdentityVerifier enables provider sign-in with the given verifier.
func WithIdentityVerifier(v IdentityVerifier) ServiceOption {
	return func(s *Service) error {
		if v != nil {
			s.verifier = v
		}
		return nil
	}
}

// NewService constructs a Service with the given store and signing secret.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	svc := &Service{
		store:    store,
		secret:   []byte(secret),
		now:      time.Now,
		tokenTTL: defaultTokenTTL,
		mailer:   LogMailer{},
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// SignUpRequest carries the fields collected at registration.
type SignUpRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignUp creates the account, then its profile with the default student role.
// If profile creation fails after the account was created, the error
// propagates; the account is kept so a later sign-in can repair the profile.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (Session, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return Session{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return Session{}, err
	}

	accounts := s.store.Accounts(ctx)
	if _, err := accounts.FindByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	now := s.now().UTC()
	account := &Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := accounts.Create(ctx, account); err != nil {
		return Session{}, err
	}

	profile := &Profile{
		ID:                     account.ID,
		Email:                  email,
		Role:                   RoleStudent,
		OrganizerRequestStatus: RequestNone,
		FirstName:              strings.TrimSpace(req.FirstName),
		LastName:               strings.TrimSpace(req.LastName),
		CreatedAt:              now,
	}
	if err := s.store.Profiles(ctx).Create(ctx, profile); err != nil {
		return Session{}, fmt.Errorf("create profile: %w", err)
	}

	return s.mintSession(Principal{Account: account, Profile: profile})
}

// SignIn verifies credentials and issues a session token. A missing profile
// is recreated with default student role, mirroring the provider sign-in
// path where an account can exist before its profile does.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	account, err := s.store.Accounts(ctx).FindByEmail(ctx, email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	profile, err := s.ensureProfile(ctx, account, "", "")
	if err != nil {
		return Session{}, err
	}
	return s.mintSession(Principal{Account: account, Profile: profile})
}

// SignInWithProvider verifies a third-party identity assertion and issues a
// session. The first sign-in for an address creates the account; an account
// without a profile yet gets a default student profile. Provider-backed
// accounts carry no password hash, so password sign-in stays closed for
// them.
func (s *Service) SignInWithProvider(ctx context.Context, provider, assertion string) (Session, error) {
	if s.verifier == nil {
		return Session{}, ErrProviderUnavailable
	}
	ident, err := s.verifier.Verify(ctx, provider, assertion)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	email := normalizeEmail(ident.Email)
	if email == "" || strings.TrimSpace(ident.Subject) == "" {
		return Session{}, ErrInvalidToken
	}

	accounts := s.store.Accounts(ctx)
	account, err := accounts.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		account = &Account{
			ID:        ids.New(),
			Email:     email,
			CreatedAt: s.now().UTC(),
		}
		if err := accounts.Create(ctx, account); err != nil {
			return Session{}, err
		}
	} else if err != nil {
		return Session{}, err
	}

	profile, err := s.ensureProfile(ctx, account, ident.FirstName, ident.LastName)
	if err != nil {
		return Session{}, err
	}
	return s.mintSession(Principal{Account: account, Profile: profile})
}

// ensureProfile loads the account's profile, creating a default student
// profile when none exists yet.
func (s *Service) ensureProfile(ctx context.Context, account *Account, firstName, lastName string) (*Profile, error) {
	profiles := s.store.Profiles(ctx)
	profile, err := profiles.Find(ctx, account.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	profile = &Profile{
		ID:                     account.ID,
		Email:                  account.Email,
		Role:                   RoleStudent,
		OrganizerRequestStatus: RequestNone,
		FirstName:              strings.TrimSpace(firstName),
		LastName:               strings.TrimSpace(lastName),
		CreatedAt:              s.now().UTC(),
	}
	if err := profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// RequestPasswordReset issues a reset token for the address if an account
// exists. It never reveals to the caller whether the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	account, err := s.store.Accounts(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	token, _, err := s.signToken(account.ID, "reset", resetTokenTTL)
	if err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, email, token)
}

// UpgradeToOrganizer promotes the profile to organizer and marks the request
// approved. Calling it on a profile that is already an organizer changes
// nothing and succeeds.
func (s *Service) UpgradeToOrganizer(ctx context.Context, accountID string) (*Profile, error) {
	profiles := s.store.Profiles(ctx)
	profile, err := profiles.Find(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if profile.Role == RoleOrganizer {
		return profile, nil
	}
	return profiles.SetRole(ctx, accountID, RoleOrganizer, RequestApproved)
}

// AuthenticateToken validates a session token and resolves its principal.
// When the profile fetch fails the identity is still returned with a nil
// profile; the failure is logged rather than forcing sign-out.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.parseToken(token, "session")
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	account, err := s.store.Accounts(ctx).Find(ctx, claims.Subject)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	profile, err := s.store.Profiles(ctx).Find(ctx, account.ID)
	if err != nil {
		obs.LogError("profile_fetch_failed", map[string]any{
			"account_id": account.ID,
			"error":      err.Error(),
		})
		profile = nil
	}
	return Principal{Account: account, Profile: profile}, nil
}

func (s *Service) mintSession(principal Principal) (Session, error) {
	token, exp, err := s.signToken(principal.Account.ID, "session", s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, Principal: principal}, nil
}

// Claims are the JWT claims carried by session and reset tokens.
type Claims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

func (s *Service) signToken(subject, use string, ttl time.Duration) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) parseToken(token, use string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenUse != use || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
