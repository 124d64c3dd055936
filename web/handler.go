package web

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/dailytribune/tribune/authentication"
	authcontext "github.com/dailytribune/tribune/authentication/context"
	"github.com/dailytribune/tribune/authorization"
	"github.com/dailytribune/tribune/contents"
	"github.com/dailytribune/tribune/discuss"
	"github.com/dailytribune/tribune/reactions"
	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type Handler struct {
	mux          *http.ServeMux
	handler      http.Handler
	authSvc      *authentication.Service
	contentsSvc  *contents.Service
	commentSvc   discuss.Service
	reactionsSvc *reactions.Service
	broker       *discuss.Broker
	authzClient  *authorization.Client
	cookieStore  *sessions.CookieStore
	sessionName  string
	cors         *cors.Cors
	upgrader     websocket.Upgrader
	markdown     goldmark.Markdown
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(
	authSvc *authentication.Service,
	contentsSvc *contents.Service,
	commentSvc discuss.Service,
	reactionsSvc *reactions.Service,
	broker *discuss.Broker,
	authzClient *authorization.Client,
	cookieStore *sessions.CookieStore,
	sessionName string,
	allowedOrigins []string,
) *Handler {
	h := &Handler{
		authSvc:      authSvc,
		contentsSvc:  contentsSvc,
		commentSvc:   commentSvc,
		reactionsSvc: reactionsSvc,
		broker:       broker,
		authzClient:  authzClient,
		cookieStore:  cookieStore,
		sessionName:  sessionName,
	}

	// raw HTML in user content is dropped by the default renderer
	h.markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

	h.cors = cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	h.mux = &http.ServeMux{}
	h.registerRoutes()

	h.handler = h.authMiddleware(h.mux)
	h.handler = h.cors.Handler(h.handler)
	h.handler = recoverMiddleware(h.handler)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /healthz", h.HandleHealthz)

	h.mux.Handle("POST /api/auth/register", h.HandleRegister())
	h.mux.Handle("POST /api/auth/login", h.HandleLogin())
	h.mux.Handle("POST /api/auth/logout", h.HandleLogout())
	h.mux.Handle("GET /api/auth/me", h.HandleMe())
	h.mux.Handle("PUT /api/users/{userId}/role", h.HandleSetRole())

	h.mux.Handle("POST /api/articles", h.HandleCreateArticle())
	h.mux.Handle("GET /api/articles", h.HandleListArticles())
	h.mux.Handle("GET /api/articles/{articleId}", h.HandleGetArticle())
	h.mux.Handle("GET /api/articles/{articleId}/comments", h.HandleListComments())
	h.mux.Handle("GET /api/articles/{articleId}/comments/stream", h.HandleCommentStream())
	h.mux.Handle("POST /api/articles/{articleId}/reactions", h.HandleToggleArticleReaction())
	h.mux.Handle("GET /api/articles/{articleId}/reactions", h.HandleArticleReactions())

	h.mux.Handle("POST /api/comments", h.HandleCreateComment())
	h.mux.Handle("GET /api/comments/moderation/queue", h.HandleModerationQueue())
	h.mux.Handle("GET /api/comments/{commentId}", h.HandleGetComment())
	h.mux.Handle("PUT /api/comments/{commentId}", h.HandleEditComment())
	h.mux.Handle("DELETE /api/comments/{commentId}", h.HandleDeleteComment())
	h.mux.Handle("POST /api/comments/{commentId}/reactions", h.HandleToggleCommentReaction())
	h.mux.Handle("GET /api/comments/{commentId}/reactions", h.HandleCommentReactions())
	h.mux.Handle("POST /api/comments/{commentId}/flag", h.HandleFlagComment())
	h.mux.Handle("POST /api/comments/{commentId}/moderate", h.HandleModerateComment())
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				writeJSON(w, r, http.StatusInternalServerError, errorBody{Error: errorDetail{
					Code:    codeInternalError,
					Message: "internal error occurred",
				}})
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// actor resolves the caller of a comment operation. Moderation rights come
// from the policy, so role changes apply without a new session.
func (h *Handler) actor(r *http.Request) discuss.Actor {
	ctx := r.Context()
	if authcontext.IsAnonymous(ctx) {
		return discuss.Actor{}
	}

	return discuss.Actor{
		UserID:    authcontext.GetSubject(ctx),
		Moderator: h.authzClient.CanI(ctx, discuss.ServiceName, "", discuss.ActionModerateComments),
	}
}

// parsePage reads the page and per_page query parameters. Missing values
// stay zero so the services apply their defaults.
func parsePage(r *http.Request) (discuss.Page, error) {
	var page discuss.Page

	params := []struct {
		name string
		dst  *int
	}{
		{name: "page", dst: &page.Number},
		{name: "per_page", dst: &page.Size},
	}

	for _, param := range params {
		name, dst := param.name, param.dst

		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}

		n, err := strconv.Atoi(raw)
		if err != nil {
			return discuss.Page{}, discuss.ValidationError{Field: name, Message: "must be an integer"}
		}

		*dst = n
	}

	return page.Normalize()
}
