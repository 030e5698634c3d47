package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leduoyang/connect-backend/internal/auth"
	"github.com/leduoyang/connect-backend/internal/model"
	"github.com/leduoyang/connect-backend/internal/queue"
	"github.com/leduoyang/connect-backend/internal/repository"
	"github.com/leduoyang/connect-backend/internal/service"
)

// CommentHandler serves comment endpoints. Comments follow the same
// ownership, visibility and versioning rules as posts.
type CommentHandler struct {
	Comments  *repository.CommentRepo
	Publisher *service.Publisher
}

func NewCommentHandler(comments *repository.CommentRepo, pub *service.Publisher) *CommentHandler {
	return &CommentHandler{Comments: comments, Publisher: pub}
}

type commentReq struct {
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
	Status  int    `json:"status"`
}

type editCommentReq struct {
	Content string `json:"content"`
	Status  int    `json:"status"`
	Version int    `json:"version"`
}

type commentResp struct {
	ID          int64  `json:"id"`
	PostID      int64  `json:"post_id"`
	Content     string `json:"content"`
	Status      string `json:"status"`
	Stars       int    `json:"stars"`
	Views       int    `json:"views"`
	Version     int    `json:"version"`
	CreatedUser string `json:"created_user"`
}

func toCommentResp(cm model.Comment) commentResp {
	return commentResp{
		ID:          cm.ID,
		PostID:      cm.PostID,
		Content:     cm.Content,
		Status:      cm.Status.String(),
		Stars:       cm.Stars,
		Views:       cm.Views,
		Version:     cm.Version,
		CreatedUser: cm.CreatedUser,
	}
}

// Create inserts a comment under a visible post.
func (h *CommentHandler) Create(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req commentReq
	if err := c.Bind(&req); err != nil || req.Content == "" || req.PostID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "post_id and content required"})
	}
	status := model.Status(req.Status)
	if !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Comments.Create(ctx, model.Comment{
		PostID:      req.PostID,
		Content:     req.Content,
		Status:      status,
		CreatedUser: p.UserID,
	})
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Get returns one comment and queues a view increment.
func (h *CommentHandler) Get(c echo.Context) error {
	principal, authed := auth.CurrentPrincipal(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cm, err := h.Comments.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	if !visibleTo(cm.Status, cm.CreatedUser, principal, authed) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	_ = h.Publisher.PublishCounter(ctx, queue.CounterEvent{
		Entity: queue.EntityComment, ID: cm.ID, Field: queue.FieldViews,
	})
	return c.JSON(http.StatusOK, toCommentResp(cm))
}

// ListByPost returns the visible comments under a post.
func (h *CommentHandler) ListByPost(c echo.Context) error {
	principal, authed := auth.CurrentPrincipal(c)
	postID, err := strconv.ParseInt(c.QueryParam("postId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "postId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	comments, err := h.Comments.ListByPost(ctx, postID)
	if err != nil {
		return repoError(c, err)
	}
	out := make([]commentResp, 0, len(comments))
	for _, cm := range comments {
		if visibleTo(cm.Status, cm.CreatedUser, principal, authed) {
			out = append(out, toCommentResp(cm))
		}
	}
	return c.JSON(http.StatusOK, out)
}

// Edit updates a comment the actor owns, guarded by the version the client
// read.
func (h *CommentHandler) Edit(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req editCommentReq
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
	}
	status := model.Status(req.Status)
	if !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Comments.Update(ctx, id, p.UserID, req.Content, status, req.Version); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes a comment the actor owns.
func (h *CommentHandler) Delete(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Comments.Delete(ctx, id, p.UserID); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Star queues a star-count refresh for a visible comment.
func (h *CommentHandler) Star(c echo.Context) error {
	principal, authed := auth.CurrentPrincipal(c)
	if !authed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cm, err := h.Comments.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	if !visibleTo(cm.Status, cm.CreatedUser, principal, authed) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	_ = h.Publisher.PublishCounter(ctx, queue.CounterEvent{
		Entity: queue.EntityComment, ID: cm.ID, Field: queue.FieldStars, Delta: 1,
	})
	return c.NoContent(http.StatusAccepted)
}
