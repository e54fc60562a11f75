package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"campushub.org/internal/audit"
	"campushub.org/internal/auth"
)

type signUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type providerSignInRequest struct {
	Provider  string `json:"provider"`
	Assertion string `json:"assertion"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	Profile   *auth.Profile `json:"profile,omitempty"`
}

func sessionPayload(s auth.Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
		Profile:   s.Principal.Profile,
	}
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		writeError(w, r, http.StatusBadRequest, "passwords do not match")
		return
	}

	session, err := a.auth.SignUp(r.Context(), auth.SignUpRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventSignup, map[string]any{
		"account_id": session.Principal.Account.ID,
		"email":      session.Principal.Account.Email,
	})
	writeJSON(w, http.StatusCreated, sessionPayload(session))
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventLogin, map[string]any{
		"account_id": session.Principal.Account.ID,
	})
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

// handleProviderSignIn exchanges a third-party identity assertion for a
// session. First sign-in creates the account; a missing profile is created
// with the default student role.
func (a *API) handleProviderSignIn(w http.ResponseWriter, r *http.Request) {
	var req providerSignInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Provider) == "" || strings.TrimSpace(req.Assertion) == "" {
		writeError(w, r, http.StatusBadRequest, "provider and assertion are required")
		return
	}

	session, err := a.auth.SignInWithProvider(r.Context(), req.Provider, req.Assertion)
	if err != nil {
		if errors.Is(err, auth.ErrProviderUnavailable) {
			writeError(w, r, http.StatusServiceUnavailable, "provider sign-in is not configured")
			return
		}
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventProviderLogin, map[string]any{
		"account_id": session.Principal.Account.ID,
		"provider":   req.Provider,
	})
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

// handleSignOut exists so clients have an explicit end-of-session call to
// audit; tokens are stateless, so the server only records the event.
func (a *API) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		_ = audit.LogEvent(r.Context(), audit.EventLogout, map[string]any{"account_id": id})
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePasswordReset always answers 202: whether the email is registered is
// never revealed to the caller.
func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	if err := a.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "if the email is registered, a reset link has been sent",
	})
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	if principal.Profile == nil {
		// Identity verified but profile missing or unreadable (see the
		// degraded path in auth.Service.AuthenticateToken).
		writeError(w, r, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, principal.Profile)
}

func (a *API) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	profile, err := a.auth.UpgradeToOrganizer(r.Context(), principal.Account.ID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventProfileUpgrade, map[string]any{
		"account_id": principal.Account.ID,
		"role":       profile.Role,
	})
	writeJSON(w, http.StatusOK, profile)
}
