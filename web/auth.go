package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dailytribune/tribune/authentication"
	authcontext "github.com/dailytribune/tribune/authentication/context"
)

const bearerPrefix = "Bearer "

// authMiddleware binds the session user to the request context. The token
// comes from the Authorization header or, failing that, the session cookie.
// Requests without a usable session continue as anonymous, except for an
// explicit bearer token that is no longer valid.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, fromHeader := bearerToken(r)
		if !fromHeader {
			sessionID = h.getSessionID(r)
		}

		if sessionID == "" {
			next.ServeHTTP(w, r)

			return
		}

		session, err := h.authSvc.GetSession(r.Context(), sessionID)
		if err != nil {
			var (
				sessionNotFoundErr authentication.SessionNotFoundError
				sessionExpiredErr  authentication.SessionExpiredError
			)

			if !errors.As(err, &sessionNotFoundErr) && !errors.As(err, &sessionExpiredErr) {
				writeError(w, r, err)

				return
			}

			if fromHeader {
				writeJSON(w, r, http.StatusUnauthorized, errorBody{Error: errorDetail{
					Code:    codeSessionInvalid,
					Message: "session is invalid or expired",
				}})

				return
			}

			err = h.deleteSessionID(w, r)
			if err != nil {
				slog.ErrorContext(r.Context(), "error on deleting session value", "key", sessionIDKey, "error", err)
			}

			next.ServeHTTP(w, r)

			return
		}

		user, err := h.authSvc.GetUser(r.Context(), session.UserID)
		if err != nil {
			var userNotFoundErr authentication.UserNotFoundError
			if !errors.As(err, &userNotFoundErr) {
				writeError(w, r, err)

				return
			}

			err = h.authSvc.Logout(r.Context(), session.ID)
			if err != nil {
				slog.ErrorContext(r.Context(), "error on logging out session", "sessionId", session.ID, "error", err)
			}

			next.ServeHTTP(w, r)

			return
		}

		ctx := authcontext.WithSessionID(r.Context(), session.ID)
		ctx = authcontext.WithSubject(ctx, user.ID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}

	return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)), true
}

func isAuthenticated(r *http.Request) bool {
	return !authcontext.IsAnonymous(r.Context())
}

func (h *Handler) AuthenticatedOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAuthenticated(r) {
			writeError(w, r, authentication.ErrCurrentUserNotFound)

			return
		}

		next.ServeHTTP(w, r)
	})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) HandleRegister() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		user, err := h.authSvc.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, newUserView(user))
	})
}

func (h *Handler) HandleLogin() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		session, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, r, err)

			return
		}

		user, err := h.authSvc.GetUser(r.Context(), session.UserID)
		if err != nil {
			writeError(w, r, err)

			return
		}

		err = h.setSessionID(w, r, session.ID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to set session ID", "error", err)
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, sessionView{
			Token:     session.ID,
			ExpiresAt: session.ExpiresAt,
			User:      newUserView(user),
		})
	})
}

func (h *Handler) HandleLogout() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := authcontext.GetSessionID(r.Context())
		if ok {
			err := h.authSvc.Logout(r.Context(), sessionID)
			if err != nil {
				slog.ErrorContext(r.Context(), "error on logout", "sessionId", sessionID, "error", err)
				writeError(w, r, err)

				return
			}
		}

		err := h.deleteSessionID(w, r)
		if err != nil {
			slog.ErrorContext(r.Context(), "error on deleting session value", "key", sessionIDKey, "error", err)
		}

		w.WriteHeader(http.StatusNoContent)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleMe() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, newUserView(user))
	})

	return h.AuthenticatedOnly(hf)
}

type setRoleRequest struct {
	Role authentication.Role `json:"role"`
}

func (h *Handler) HandleSetRole() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("userId")

		err := h.authzClient.CheckAccess(r.Context(), authentication.ServiceName, userID, authentication.ActionSetRole)
		if err != nil {
			writeError(w, r, err)

			return
		}

		var req setRoleRequest

		err = decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		user, err := h.authSvc.SetRole(r.Context(), userID, req.Role)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, newUserView(user))
	})

	return h.AuthenticatedOnly(hf)
}
