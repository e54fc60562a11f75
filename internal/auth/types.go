package auth

import "time"

// Roles a profile can hold. Every profile starts as a student; the upgrade
// operation promotes it to organizer.
const (
	RoleStudent   = "student"
	RoleOrganizer = "organizer"
)

// Organizer request statuses. The upgrade flow is self-service, so the only
// states that occur in practice are "none" and "approved".
const (
	RequestNone     = "none"
	RequestApproved = "approved"
)

// Account is the identity record: credentials plus an opaque id. It is
// referenced, never duplicated, by the profile.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile carries the application-level view of an account: role, the
// organizer-request state, and display names. Profile ID equals account ID.
type Profile struct {
	ID                     string    `json:"id"`
	Email                  string    `json:"email"`
	Role                   string    `json:"role"`
	OrganizerRequestStatus string    `json:"organizer_request_status"`
	FirstName              string    `json:"first_name"`
	LastName               string    `json:"last_name"`
	CreatedAt              time.Time `json:"created_at"`
}

// DisplayName returns "First Last", falling back to the email when both
// names are empty.
func (p *Profile) DisplayName() string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return p.Email
	}
	return name
}

// Principal is a verified identity with its resolved profile. Profile may be
// nil when the profile fetch failed after the identity itself was verified;
// callers that need a role must treat that as not having one.
type Principal struct {
	Account *Account
	Profile *Profile
}

// HasRole reports whether the principal's profile carries the given role.
func (p Principal) HasRole(role string) bool {
	return p.Profile != nil && p.Profile.Role == role
}

// Session is the result of a successful sign-in or sign-up.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Principal Principal `json:"-"`
}
