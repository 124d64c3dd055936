package web

import (
	"net/http"

	authcontext "github.com/dailytribune/tribune/authentication/context"
	"github.com/dailytribune/tribune/contents"
	"github.com/dailytribune/tribune/reactions"
)

type createArticleRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *Handler) HandleCreateArticle() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.authzClient.CheckAccess(r.Context(), contents.ServiceName, "", contents.ActionCreateArticle)
		if err != nil {
			writeError(w, r, err)

			return
		}

		var req createArticleRequest

		err = decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		article, err := h.contentsSvc.CreateArticle(r.Context(), contents.CreateArticleRequest{
			AuthorID: authcontext.GetSubject(r.Context()),
			Title:    req.Title,
			Body:     req.Body,
		})
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, h.newArticleView(r.Context(), article))
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleListArticles() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.authzClient.CheckAccess(r.Context(), contents.ServiceName, "", contents.ActionReadArticles)
		if err != nil {
			writeError(w, r, err)

			return
		}

		page, err := parsePage(r)
		if err != nil {
			writeError(w, r, err)

			return
		}

		articles, err := h.contentsSvc.ListArticles(r.Context(), page.Size, page.Offset())
		if err != nil {
			writeError(w, r, err)

			return
		}

		views := make([]*articleView, 0, len(articles))
		for _, article := range articles {
			views = append(views, h.newArticleView(r.Context(), article))
		}

		writeJSON(w, r, http.StatusOK, map[string]any{
			"page":     page.Number,
			"per_page": page.Size,
			"articles": views,
		})
	})
}

func (h *Handler) HandleGetArticle() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		articleID := r.PathValue("articleId")

		err := h.authzClient.CheckAccess(r.Context(), contents.ServiceName, articleID, contents.ActionReadArticles)
		if err != nil {
			writeError(w, r, err)

			return
		}

		article, err := h.contentsSvc.GetArticle(r.Context(), articleID)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, h.newArticleView(r.Context(), article))
	})
}

func (h *Handler) HandleToggleArticleReaction() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := reactions.ArticleTarget(r.PathValue("articleId"))

		err := h.authzClient.CheckAccess(r.Context(), reactions.ServiceName, target.String(), reactions.ActionToggleReaction)
		if err != nil {
			writeError(w, r, err)

			return
		}

		var req reactRequest

		err = decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		kind, err := reactions.ParseKind(req.ReactionType)
		if err != nil {
			writeError(w, r, err)

			return
		}

		res, err := h.reactionsSvc.Toggle(r.Context(), target, authcontext.GetSubject(r.Context()), kind)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, reactionView{Action: res.Action, ReactionType: res.Kind, Counts: res.Counts})
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleArticleReactions() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := reactions.ArticleTarget(r.PathValue("articleId"))

		err := h.authzClient.CheckAccess(r.Context(), reactions.ServiceName, target.String(), reactions.ActionReadReactions)
		if err != nil {
			writeError(w, r, err)

			return
		}

		counts, err := h.reactionsSvc.Counts(r.Context(), target)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, countsView{TargetType: target.Type, TargetID: target.ID, Counts: counts})
	})
}
