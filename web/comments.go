package web

import (
	"net/http"

	"github.com/dailytribune/tribune/discuss"
	"github.com/dailytribune/tribune/reactions"
)

type createCommentRequest struct {
	ArticleID string `json:"article_id"`
	ParentID  string `json:"parent_id"`
	Content   string `json:"content"`
}

type editCommentRequest struct {
	Content string `json:"content"`
}

type flagCommentRequest struct {
	Reason string `json:"reason"`
}

type moderateCommentRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type reactRequest struct {
	ReactionType string `json:"reaction_type"`
}

func (h *Handler) HandleCreateComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createCommentRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		actor := h.actor(r)

		comment, err := h.commentSvc.CreateComment(r.Context(), actor, discuss.CreateCommentRequest{
			ArticleID: req.ArticleID,
			ParentID:  req.ParentID,
			Content:   req.Content,
		})
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusCreated, h.newCommentView(r.Context(), comment, actor.Moderator))
	})
}

func (h *Handler) HandleGetComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := h.actor(r)

		comment, err := h.commentSvc.GetComment(r.Context(), actor, r.PathValue("commentId"))
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, h.newCommentView(r.Context(), comment, actor.Moderator))
	})
}

func (h *Handler) HandleEditComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req editCommentRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		actor := h.actor(r)

		comment, err := h.commentSvc.EditComment(r.Context(), actor, r.PathValue("commentId"), req.Content)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, h.newCommentView(r.Context(), comment, actor.Moderator))
	})
}

func (h *Handler) HandleDeleteComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.commentSvc.DeleteComment(r.Context(), h.actor(r), r.PathValue("commentId"))
		if err != nil {
			writeError(w, r, err)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) HandleListComments() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r)
		if err != nil {
			writeError(w, r, err)

			return
		}

		actor := h.actor(r)

		threadPage, err := h.commentSvc.ListComments(r.Context(), actor, r.PathValue("articleId"), page)
		if err != nil {
			writeError(w, r, err)

			return
		}

		view := threadView{
			ArticleID: threadPage.ArticleID,
			Page:      threadPage.Page.Number,
			PerPage:   threadPage.Page.Size,
			Comments:  make([]*commentView, 0, len(threadPage.Thread.Roots)),
		}

		for _, root := range threadPage.Thread.Roots {
			view.Comments = append(view.Comments, h.newNodeView(r.Context(), root, actor.Moderator))
		}

		writeJSON(w, r, http.StatusOK, view)
	})
}

func (h *Handler) HandleFlagComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req flagCommentRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		actor := h.actor(r)

		comment, err := h.commentSvc.FlagComment(r.Context(), actor, r.PathValue("commentId"), req.Reason)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, h.newCommentView(r.Context(), comment, actor.Moderator))
	})
}

func (h *Handler) HandleModerationQueue() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r)
		if err != nil {
			writeError(w, r, err)

			return
		}

		actor := h.actor(r)

		comments, err := h.commentSvc.ModerationQueue(r.Context(), actor, page)
		if err != nil {
			writeError(w, r, err)

			return
		}

		view := commentListView{
			Page:     page.Number,
			PerPage:  page.Size,
			Comments: make([]*commentView, 0, len(comments)),
		}

		for _, comment := range comments {
			view.Comments = append(view.Comments, h.newCommentView(r.Context(), comment, actor.Moderator))
		}

		writeJSON(w, r, http.StatusOK, view)
	})
}

func (h *Handler) HandleModerateComment() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req moderateCommentRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		actor := h.actor(r)

		comment, err := h.commentSvc.ModerateComment(r.Context(), actor, discuss.ModerateCommentRequest{
			CommentID: r.PathValue("commentId"),
			Action:    req.Action,
			Reason:    req.Reason,
		})
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, h.newCommentView(r.Context(), comment, actor.Moderator))
	})
}

func (h *Handler) HandleToggleCommentReaction() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req reactRequest

		err := decodeJSON(w, r, &req)
		if err != nil {
			writeError(w, r, err)

			return
		}

		res, err := h.commentSvc.ReactToComment(r.Context(), h.actor(r), r.PathValue("commentId"), req.ReactionType)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, reactionView{Action: res.Action, ReactionType: res.Kind, Counts: res.Counts})
	})
}

func (h *Handler) HandleCommentReactions() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commentID := r.PathValue("commentId")

		counts, err := h.commentSvc.CommentReactions(r.Context(), h.actor(r), commentID)
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeJSON(w, r, http.StatusOK, countsView{
			TargetType: reactions.TargetTypeComment,
			TargetID:   commentID,
			Counts:     counts,
		})
	})
}
