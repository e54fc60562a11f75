package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campushub.org/internal/auth"
)

// handleRegistrationStream handles Server-Sent Events for one event's roster.
func (a *API) handleRegistrationStream(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}

	principal, _ := auth.PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	evt, err := a.events.GetEvent(r.Context(), eventID)
	if err != nil {
		handleEventError(w, r, err)
		return
	}
	if evt.OrganizerID != principal.Account.ID {
		writeError(w, r, http.StatusForbidden, "only the event organizer may stream the roster")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Long-lived connection: the server write timeout must not apply here.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx, eventID)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for update := range ch {
		payload, err := json.Marshal(update)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
