package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campushub.org/internal/audit"
	"campushub.org/internal/auth"
	"campushub.org/internal/event"
	"campushub.org/internal/obs"
	"campushub.org/internal/stream"
)

type eventListResponse struct {
	Events []event.Event `json:"events"`
	Count  int           `json:"count"`
}

type rosterResponse struct {
	Event         event.Event          `json:"event"`
	Registrations []event.Registration `json:"registrations"`
	Count         int                  `json:"count"`
	Remaining     int                  `json:"remaining"`
}

func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req event.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	evt, err := a.events.CreateEvent(r.Context(), principal.Account.ID, req)
	if err != nil {
		handleEventError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventCreated, map[string]any{
		"event_id":  evt.ID,
		"title":     evt.Title,
		"capacity":  evt.Capacity,
		"published": evt.IsPublished,
	})
	writeJSON(w, http.StatusCreated, evt)
}

func (a *API) handleListPublished(w http.ResponseWriter, r *http.Request) {
	events, err := a.events.ListPublished(r.Context())
	if err != nil {
		handleEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventListResponse{Events: events, Count: len(events)})
}

func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	evt, err := a.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleEventError(w, r, err)
		return
	}

	// Unpublished events stay invisible to everyone but their organizer.
	if !evt.IsPublished {
		principal, _ := auth.PrincipalFromContext(r.Context())
		if principal.Account == nil || principal.Account.ID != evt.OrganizerID {
			writeError(w, r, http.StatusNotFound, "event not found")
			return
		}
	}
	writeJSON(w, http.StatusOK, evt)
}

func (a *API) handleListOrganizerEvents(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	events, err := a.events.ListByOrganizer(r.Context(), principal.Account.ID)
	if err != nil {
		handleEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventListResponse{Events: events, Count: len(events)})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	evt, err := a.events.GetEvent(r.Context(), eventID)
	if err != nil {
		handleEventError(w, r, err)
		return
	}
	if !evt.IsPublished {
		// Drafts are not registrable even with a known id.
		writeError(w, r, http.StatusNotFound, "event not found")
		return
	}

	student := event.Student{
		ID:    principal.Account.ID,
		Email: principal.Account.Email,
	}
	if principal.Profile != nil {
		student.Name = principal.Profile.DisplayName()
	}

	reg, err := a.events.Register(r.Context(), eventID, student)
	if err != nil {
		obs.ObserveRegistration(registrationOutcome(err))
		handleEventError(w, r, err)
		return
	}
	obs.ObserveRegistration("confirmed")

	_ = audit.LogEvent(r.Context(), audit.EventRegistered, map[string]any{
		"event_id":   eventID,
		"student_id": reg.StudentID,
	})

	if fresh, gerr := a.events.GetEvent(r.Context(), eventID); gerr == nil {
		a.stream.Publish(stream.RosterEvent{
			EventID:         eventID,
			Registration:    reg,
			RegisteredCount: fresh.RegisteredCount,
			Timestamp:       time.Now().UTC(),
		})
	}

	writeJSON(w, http.StatusCreated, reg)
}

func (a *API) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	evt, err := a.events.GetEvent(r.Context(), eventID)
	if err != nil {
		handleEventError(w, r, err)
		return
	}
	if evt.OrganizerID != principal.Account.ID {
		writeError(w, r, http.StatusForbidden, "only the event organizer may view the roster")
		return
	}

	regs, err := a.events.ListRegistrations(r.Context(), eventID)
	if err != nil {
		handleEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rosterResponse{
		Event:         evt,
		Registrations: regs,
		Count:         len(regs),
		Remaining:     evt.Remaining(),
	})
}

func registrationOutcome(err error) string {
	switch {
	case errors.Is(err, event.ErrEventFull):
		return "full"
	case errors.Is(err, event.ErrAlreadyRegistered):
		return "duplicate"
	case errors.Is(err, event.ErrNotFound):
		return "not_found"
	case errors.Is(err, event.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
