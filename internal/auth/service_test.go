package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(NewMemoryStore(), "test-secret", opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpRequest{
		Email:     "Sam@Campus.EDU",
		Password:  "correct-horse",
		FirstName: "Sam",
		LastName:  "Singh",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected session token")
	}
	if session.Principal.Account.Email != "sam@campus.edu" {
		t.Fatalf("email not normalized: %s", session.Principal.Account.Email)
	}
	if session.Principal.Profile.Role != RoleStudent {
		t.Fatalf("expected default student role, got %s", session.Principal.Profile.Role)
	}

	again, err := svc.SignIn(ctx, "sam@campus.edu", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if again.Principal.Account.ID != session.Principal.Account.ID {
		t.Fatal("sign-in resolved a different account")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "a@campus.edu", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.SignUp(ctx, SignUpRequest{Email: "A@Campus.edu", Password: "longenough"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignUpWeakPassword(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@campus.edu", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "a@campus.edu", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SignIn(ctx, "a@campus.edu", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@campus.edu", "longenough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like bad credentials, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpRequest{Email: "a@campus.edu", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}

	principal, err := svc.AuthenticateToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("AuthenticateToken: %v", err)
	}
	if principal.Account.ID != session.Principal.Account.ID {
		t.Fatal("token resolved a different account")
	}
	if principal.Profile == nil || principal.Profile.Role != RoleStudent {
		t.Fatalf("unexpected profile: %#v", principal.Profile)
	}
}

func TestExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return now }), WithTokenTTL(time.Hour))
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpRequest{Email: "a@campus.edu", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.AuthenticateToken(ctx, session.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestTamperedToken(t *testing.T) {
	svc := newTestService(t)
	other := newTestService(t)
	ctx := context.Background()

	// Reuse the same memory store so only the secret differs.
	other.store = svc.store

	session, err := svc.SignUp(ctx, SignUpRequest{Email: "a@campus.edu", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}
	other.secret = []byte("different-secret")
	if _, err := other.AuthenticateToken(ctx, session.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestUpgradeToOrganizerIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpRequest{Email: "a@campus.edu", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}
	id := session.Principal.Account.ID

	p1, err := svc.UpgradeToOrganizer(ctx, id)
	if err != nil {
		t.Fatalf("UpgradeToOrganizer: %v", err)
	}
	if p1.Role != RoleOrganizer || p1.OrganizerRequestStatus != RequestApproved {
		t.Fatalf("unexpected profile after upgrade: %#v", p1)
	}

	p2, err := svc.UpgradeToOrganizer(ctx, id)
	if err != nil {
		t.Fatalf("second upgrade: %v", err)
	}
	if p2.Role != RoleOrganizer {
		t.Fatalf("role regressed: %s", p2.Role)
	}
}

type captureMailer struct {
	email string
	token string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.email = email
	m.token = token
	return nil
}

func TestRequestPasswordReset(t *testing.T) {
	mail := &captureMailer{}
	svc := newTestService(t, WithMailer(mail))
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "a@campus.edu", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}

	if err := svc.RequestPasswordReset(ctx, "a@campus.edu"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if mail.email != "a@campus.edu" || mail.token == "" {
		t.Fatalf("expected reset mail, got %#v", mail)
	}

	// Unknown addresses never error, so callers can't probe for accounts.
	mail.email, mail.token = "", ""
	if err := svc.RequestPasswordReset(ctx, "nobody@campus.edu"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if mail.token != "" {
		t.Fatal("no mail should be sent for unknown addresses")
	}
}

func TestPrincipalHasRole(t *testing.T) {
	p := Principal{Profile: &Profile{Role: RoleOrganizer}}
	if !p.HasRole(RoleOrganizer) {
		t.Fatal("organizer role not recognized")
	}
	if p.HasRole(RoleStudent) {
		t.Fatal("unexpected student role")
	}
	var empty Principal
	if empty.HasRole(RoleStudent) {
		t.Fatal("nil profile must have no roles")
	}
}

func TestContextHelpers(t *testing.T) {
	acct := &Account{ID: "acct-7", Email: "a@campus.edu"}
	ctx := ContextWithPrincipal(context.Background(), Principal{Account: acct})

	id, ok := UserIDFromContext(ctx)
	if !ok || id != "acct-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry a user id")
	}
}

type staticVerifier struct {
	identities map[string]ProviderIdentity
}

func (v staticVerifier) Verify(_ context.Context, provider, assertion string) (ProviderIdentity, error) {
	ident, ok := v.identities[assertion]
	if !ok || ident.Provider != provider {
		return ProviderIdentity{}, errors.New("unknown assertion")
	}
	return ident, nil
}

func TestSignInWithProviderCreatesAccount(t *testing.T) {
	svc := newTestService(t, WithIdentityVerifier(staticVerifier{
		identities: map[string]ProviderIdentity{
			"assertion-1": {
				Provider:  "campus-sso",
				Subject:   "sso-42",
				Email:     "Pat@Campus.EDU",
				FirstName: "Pat",
				LastName:  "Lee",
			},
		},
	}))
	ctx := context.Background()

	session, err := svc.SignInWithProvider(ctx, "campus-sso", "assertion-1")
	if err != nil {
		t.Fatalf("SignInWithProvider: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected session token")
	}
	if session.Principal.Account.Email != "pat@campus.edu" {
		t.Fatalf("email not normalized: %s", session.Principal.Account.Email)
	}
	if session.Principal.Profile.Role != RoleStudent {
		t.Fatalf("expected default student role, got %s", session.Principal.Profile.Role)
	}
	if session.Principal.Profile.FirstName != "Pat" {
		t.Fatalf("provider name not applied: %q", session.Principal.Profile.FirstName)
	}

	// Provider accounts carry no password hash, so password sign-in stays closed.
	if _, err := svc.SignIn(ctx, "pat@campus.edu", "any-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	again, err := svc.SignInWithProvider(ctx, "campus-sso", "assertion-1")
	if err != nil {
		t.Fatalf("repeat SignInWithProvider: %v", err)
	}
	if again.Principal.Account.ID != session.Principal.Account.ID {
		t.Fatal("repeat sign-in created a second account")
	}
}

func TestSignInWithProviderBackfillsProfile(t *testing.T) {
	svc := newTestService(t, WithIdentityVerifier(staticVerifier{
		identities: map[string]ProviderIdentity{
			"assertion-1": {
				Provider: "campus-sso",
				Subject:  "sso-7",
				Email:    "older@campus.edu",
			},
		},
	}))
	ctx := context.Background()

	account := &Account{ID: "acct-older", Email: "older@campus.edu", CreatedAt: time.Now().UTC()}
	if err := svc.store.Accounts(ctx).Create(ctx, account); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	session, err := svc.SignInWithProvider(ctx, "campus-sso", "assertion-1")
	if err != nil {
		t.Fatalf("SignInWithProvider: %v", err)
	}
	if session.Principal.Account.ID != "acct-older" {
		t.Fatalf("expected the seeded account, got %s", session.Principal.Account.ID)
	}
	if session.Principal.Profile == nil || session.Principal.Profile.Role != RoleStudent {
		t.Fatalf("expected a backfilled student profile, got %#v", session.Principal.Profile)
	}
}

func TestSignInWithProviderErrors(t *testing.T) {
	ctx := context.Background()

	bare := newTestService(t)
	if _, err := bare.SignInWithProvider(ctx, "campus-sso", "anything"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	svc := newTestService(t, WithIdentityVerifier(staticVerifier{}))
	if _, err := svc.SignInWithProvider(ctx, "campus-sso", "forged"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
