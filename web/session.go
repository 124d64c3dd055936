package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionIDKey = "sessionId"

// cookieSession returns the cookie session of r. A cookie that cannot be
// decoded, for example after a key rotation, yields a fresh session.
func (h *Handler) cookieSession(r *http.Request) *sessions.Session {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		slog.DebugContext(r.Context(), "discarding undecodable session cookie", "error", err)
	}

	return session
}

func (h *Handler) getSessionID(r *http.Request) string {
	value, ok := h.cookieSession(r).Values[sessionIDKey].(string)
	if !ok {
		return ""
	}

	return value
}

func (h *Handler) setSessionID(w http.ResponseWriter, r *http.Request, sessionID string) error {
	session := h.cookieSession(r)
	session.Values[sessionIDKey] = sessionID

	err := session.Save(r, w)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}

func (h *Handler) deleteSessionID(w http.ResponseWriter, r *http.Request) error {
	session := h.cookieSession(r)
	delete(session.Values, sessionIDKey)
	session.Options.MaxAge = -1

	err := session.Save(r, w)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}
