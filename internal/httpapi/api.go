// Package httpapi exposes the campus event service over JSON/HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campushub.org/internal/auth"
	"campushub.org/internal/event"
	"campushub.org/internal/obs"
	"campushub.org/internal/stream"
)

// ReadyProbe reports backend readiness (for example a DB ping).
type ReadyProbe struct {
	DB *sql.DB
	Fn func(ctx context.Context) error
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Fn != nil {
		return rp.Fn(ctx)
	}
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	auth       *auth.Service
	events     event.Service
	stream     *stream.Stream
	readyProbe ReadyProbe
	version    string

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

// Option adjusts API construction.
type Option func(*API)

// WithRateLimit overrides the default per-IP rate limit.
func WithRateLimit(burst, perSec int) Option {
	return func(a *API) {
		if burst > 0 {
			a.rateBurst = burst
		}
		if perSec > 0 {
			a.ratePerSec = perSec
		}
	}
}

// WithMaxBodyBytes overrides the request body size limit.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

// New wires routes, guards, and middleware.
func New(authSvc *auth.Service, events event.Service, st *stream.Stream, rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		auth:         authSvc,
		events:       events,
		stream:       st,
		readyProbe:   rp,
		version:      version,
		rateBurst:    20,
		ratePerSec:   10,
		maxBodyBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(SecurityHeaders)
	r.Use(CORS)
	r.Use(func(next http.Handler) http.Handler { return MaxBodyBytes(next, a.maxBodyBytes) })
	r.Use(func(next http.Handler) http.Handler { return RateLimit(next, a.rateBurst, a.ratePerSec) })

	// Public surface: health, metrics, and the auth endpoints themselves.
	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/v1/info", a.Info)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/signup", a.handleSignUp)
		r.Post("/login", a.handleSignIn)
		r.Post("/provider", a.handleProviderSignIn)
		r.Post("/password-reset", a.handlePasswordReset)
	})

	// Everything below requires a verified identity.
	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Post("/v1/auth/logout", a.handleSignOut)
		r.Get("/v1/profile", a.handleGetProfile)
		r.Post("/v1/profile/upgrade", a.handleUpgrade)

		r.Get("/v1/events", a.handleListPublished)
		r.Get("/v1/events/{id}", a.handleGetEvent)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleStudent))
			r.Post("/v1/events/{id}/registrations", a.handleRegister)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleOrganizer))
			r.Post("/v1/events", a.handleCreateEvent)
			r.Get("/v1/organizer/events", a.handleListOrganizerEvents)
			r.Get("/v1/events/{id}/registrations", a.handleListRegistrations)
			r.Get("/v1/events/{id}/registrations/stream", a.handleRegistrationStream)
		})
	})

	a.router = r
	return a
}

// Handler returns the fully instrumented handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

// --- Health and info handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "campushub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "campushub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
