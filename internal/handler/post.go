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

// PostHandler serves post endpoints, both the public browse surface and the
// authenticated CRUD surface.
type PostHandler struct {
	Posts     *repository.PostRepo
	Publisher *service.Publisher
}

func NewPostHandler(posts *repository.PostRepo, pub *service.Publisher) *PostHandler {
	return &PostHandler{Posts: posts, Publisher: pub}
}

type postReq struct {
	Content     string `json:"content"`
	Status      int    `json:"status"`
	ReferenceID *int64 `json:"reference_id"`
}

type editPostReq struct {
	Content string `json:"content"`
	Status  int    `json:"status"`
	Version int    `json:"version"`
}

type postResp struct {
	ID          int64  `json:"id"`
	Content     string `json:"content"`
	ReferenceID *int64 `json:"reference_id,omitempty"`
	Status      string `json:"status"`
	Stars       int    `json:"stars"`
	Views       int    `json:"views"`
	Version     int    `json:"version"`
	CreatedUser string `json:"created_user"`
}

func toPostResp(p model.Post) postResp {
	return postResp{
		ID:          p.ID,
		Content:     p.Content,
		ReferenceID: p.ReferenceID,
		Status:      p.Status.String(),
		Stars:       p.Stars,
		Views:       p.Views,
		Version:     p.Version,
		CreatedUser: p.CreatedUser,
	}
}

// visibleTo applies the status rules: PUBLIC for everyone, SEMI for any
// authenticated user, PRIVATE for the creator only.
func visibleTo(status model.Status, createdUser string, p auth.Principal, authed bool) bool {
	switch status {
	case model.StatusPublic:
		return true
	case model.StatusSemi:
		return authed
	case model.StatusPrivate:
		return authed && p.UserID == createdUser
	}
	return false
}

// Create inserts a post owned by the authenticated user.
func (h *PostHandler) Create(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req postReq
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
	}
	status := model.Status(req.Status)
	if !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Posts.Create(ctx, model.Post{
		Content:     req.Content,
		ReferenceID: req.ReferenceID,
		Status:      status,
		CreatedUser: p.UserID,
	})
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Get returns one post, honoring visibility, and queues a view increment.
func (h *PostHandler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	principal, authed := auth.CurrentPrincipal(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	post, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	if !visibleTo(post.Status, post.CreatedUser, principal, authed) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	_ = h.Publisher.PublishCounter(ctx, queue.CounterEvent{
		Entity: queue.EntityPost, ID: post.ID, Field: queue.FieldViews,
	})
	return c.JSON(http.StatusOK, toPostResp(post))
}

// Query lists posts by creator and/or keyword, filtered by visibility.
func (h *PostHandler) Query(c echo.Context) error {
	principal, authed := auth.CurrentPrincipal(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	posts, err := h.Posts.Query(ctx, c.QueryParam("userId"), c.QueryParam("keyword"))
	if err != nil {
		return repoError(c, err)
	}
	out := make([]postResp, 0, len(posts))
	for _, post := range posts {
		if visibleTo(post.Status, post.CreatedUser, principal, authed) {
			out = append(out, toPostResp(post))
		}
	}
	return c.JSON(http.StatusOK, out)
}

// Edit updates a post the actor owns. The request carries the version the
// client read; a stale version means someone edited in between and the
// client should re-read before retrying.
func (h *PostHandler) Edit(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req editPostReq
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
	}
	status := model.Status(req.Status)
	if !status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Posts.Update(ctx, id, p.UserID, req.Content, status, req.Version); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete soft-deletes a post the actor owns.
func (h *PostHandler) Delete(c echo.Context) error {
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

	if err := h.Posts.Delete(ctx, id, p.UserID); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Star queues a star-count refresh for a visible post.
func (h *PostHandler) Star(c echo.Context) error {
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

	post, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	if !visibleTo(post.Status, post.CreatedUser, principal, authed) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	_ = h.Publisher.PublishCounter(ctx, queue.CounterEvent{
		Entity: queue.EntityPost, ID: post.ID, Field: queue.FieldStars, Delta: 1,
	})
	return c.NoContent(http.StatusAccepted)
}
