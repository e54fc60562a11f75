package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"campushub.org/internal/auth"
	"campushub.org/internal/event"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// decodeJSON decodes exactly one JSON object from the request body.
// The body is already size-bounded by the MaxBodyBytes middleware.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleEventError maps domain errors onto HTTP statuses. Full and
// AlreadyRegistered are expected outcomes of the registration transaction,
// not system errors, and get specific conflict responses.
func handleEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, event.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, trimPrefixedError(err))
	case errors.Is(err, event.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "event not found")
	case errors.Is(err, event.ErrEventFull):
		writeError(w, r, http.StatusConflict, "event is fully booked")
	case errors.Is(err, event.ErrAlreadyRegistered):
		writeError(w, r, http.StatusConflict, "you are already registered for this event")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, r, http.StatusBadRequest, trimPrefixedError(err))
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, "an account with this email already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid identity assertion")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// trimPrefixedError drops the "pkg:" sentinel prefix from user-facing
// messages.
func trimPrefixedError(err error) string {
	msg := err.Error()
	for _, prefix := range []string{"event: ", "auth: "} {
		msg = strings.ReplaceAll(msg, prefix, "")
	}
	return msg
}
