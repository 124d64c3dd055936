package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dailytribune/tribune/authentication"
	"github.com/dailytribune/tribune/authorization"
	"github.com/dailytribune/tribune/contents"
	"github.com/dailytribune/tribune/discuss"
	"github.com/dailytribune/tribune/reactions"
)

const maxBodyBytes = 64 << 10

const (
	codeBadRequest     = "bad_request"
	codeValidation     = "validation_error"
	codeNotFound       = "not_found"
	codeForbidden      = "forbidden"
	codeUnauthorized   = "unauthorized"
	codeConflict       = "conflict"
	codeInternalError  = "internal_error"
	codeSessionInvalid = "invalid_session"
)

type badRequestError struct {
	Message string
}

func (err badRequestError) Error() string {
	return err.Message
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return badRequestError{Message: "request body must be a JSON object"}
	}

	return nil
}

// statusOf maps an error returned by a service to its HTTP status and error
// code. Unknown errors are internal.
func statusOf(err error) (int, string) {
	var (
		validationErr     discuss.ValidationError
		notFoundErr       discuss.NotFoundError
		permissionErr     discuss.PermissionError
		limitErr          discuss.LimitExceededError
		accessDeniedErr   authorization.AccessDeniedError
		badRequestErr     badRequestError
		invalidKindErr    reactions.InvalidKindError
		invalidTargetErr  reactions.InvalidTargetTypeError
		targetNotFoundErr reactions.TargetNotFoundError
		articleErr        contents.InvalidArticleError
		articleMissingErr contents.ArticleNotFoundError
		inputErr          authentication.InvalidInputError
		roleErr           authentication.InvalidRoleError
		userExistsErr     authentication.UserAlreadyExistsError
		userMissingErr    authentication.UserNotFoundError
	)

	switch {
	case errors.As(err, &limitErr):
		if limitErr.Code == discuss.CodeRateLimitExceeded {
			return http.StatusTooManyRequests, limitErr.Code
		}

		return http.StatusBadRequest, limitErr.Code
	case errors.As(err, &accessDeniedErr):
		if accessDeniedErr.Anonymous() {
			return http.StatusUnauthorized, codeUnauthorized
		}

		return http.StatusForbidden, codeForbidden
	case errors.As(err, &permissionErr):
		if permissionErr.UserID == "" {
			return http.StatusUnauthorized, codeUnauthorized
		}

		return http.StatusForbidden, codeForbidden
	case errors.Is(err, authentication.ErrInvalidCredentials),
		errors.Is(err, authentication.ErrCurrentUserNotFound):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.As(err, &badRequestErr):
		return http.StatusBadRequest, codeBadRequest
	case errors.As(err, &validationErr),
		errors.As(err, &invalidKindErr),
		errors.As(err, &invalidTargetErr),
		errors.As(err, &articleErr),
		errors.As(err, &inputErr),
		errors.As(err, &roleErr):
		return http.StatusBadRequest, codeValidation
	case errors.As(err, &notFoundErr),
		errors.As(err, &targetNotFoundErr),
		errors.As(err, &articleMissingErr),
		errors.As(err, &userMissingErr):
		return http.StatusNotFound, codeNotFound
	case errors.As(err, &userExistsErr):
		return http.StatusConflict, codeConflict
	default:
		return http.StatusInternalServerError, codeInternalError
	}
}

// publicMessage returns the innermost typed error message, hiding the
// wrapping chain of internal call sites.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal error occurred"
	}

	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}

		err = next
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	writeJSON(w, r, status, errorBody{Error: errorDetail{Code: code, Message: publicMessage(err, status)}})
}
