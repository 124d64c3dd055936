package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dailytribune/tribune/discuss"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait    = 10 * time.Second
	streamPongWait     = 60 * time.Second
	streamPingInterval = streamPongWait * 9 / 10
)

// checkOrigin applies the CORS origin list to websocket upgrades. Clients
// that send no Origin header are not browsers and are let through.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if r.Header.Get("Origin") == "" {
		return true
	}

	return h.cors.OriginAllowed(r)
}

// newEventView hides the text of rejected comments from subscribers who
// are not moderators.
func (h *Handler) newEventView(ctx context.Context, event discuss.Event, moderator bool) eventView {
	view := h.newCommentView(ctx, event.Comment, moderator)

	if event.Comment.Status == discuss.StatusRejected && !moderator {
		view.Content = ""
		view.ContentHTML = ""
	}

	return eventView{Type: event.Type, Comment: view}
}

func (h *Handler) HandleCommentStream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		articleID := r.PathValue("articleId")

		err := h.authzClient.CheckAccess(ctx, discuss.ServiceName, articleID, discuss.ActionListComments)
		if err != nil {
			writeError(w, r, err)

			return
		}

		exists, err := h.contentsSvc.Exists(ctx, articleID)
		if err != nil {
			writeError(w, r, err)

			return
		}

		if !exists {
			writeError(w, r, discuss.NotFoundError{Resource: discuss.ResourceArticle, ID: articleID})

			return
		}

		actor := h.actor(r)

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.WarnContext(ctx, "failed to upgrade comment stream", "articleId", articleID, "error", err)

			return
		}

		defer func() {
			_ = conn.Close()
		}()

		events, unsubscribe := h.broker.Subscribe(articleID)
		defer unsubscribe()

		slog.DebugContext(ctx, "comment stream opened", "articleId", articleID, "userId", actor.UserID)

		closed := make(chan struct{})

		go func() {
			defer close(closed)

			_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(streamPongWait))
			})

			for {
				_, _, err := conn.ReadMessage()
				if err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(streamPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-closed:
				return
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}

				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))

				err := conn.WriteJSON(h.newEventView(ctx, event, actor.Moderator))
				if err != nil {
					slog.DebugContext(ctx, "comment stream write failed", "articleId", articleID, "error", err)

					return
				}
			case <-ticker.C:
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait))
				if err != nil {
					return
				}
			}
		}
	})
}
