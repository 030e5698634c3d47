package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leduoyang/connect-backend/internal/auth"
	"github.com/leduoyang/connect-backend/internal/model"
	"github.com/leduoyang/connect-backend/internal/queue"
	"github.com/leduoyang/connect-backend/internal/repository"
	"github.com/leduoyang/connect-backend/internal/service"
)

// UserHandler serves profile endpoints.
type UserHandler struct {
	Users     *repository.UserRepo
	Publisher *service.Publisher
}

func NewUserHandler(users *repository.UserRepo, pub *service.Publisher) *UserHandler {
	return &UserHandler{Users: users, Publisher: pub}
}

type userResp struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description"`
	Views       int    `json:"views"`
	Followers   int    `json:"followers"`
	Followings  int    `json:"followings"`
}

func toUserResp(u model.User, includeEmail bool) userResp {
	r := userResp{
		UserID:      u.UserID,
		Description: u.Description,
		Views:       u.Views,
		Followers:   u.Followers,
		Followings:  u.Followings,
	}
	if includeEmail {
		r.Email = u.Email
	}
	return r
}

// Me returns the authenticated user's own record, email included.
func (h *UserHandler) Me(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUserID(ctx, p.UserID)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u, true))
}

// Get returns another user's public profile and queues a profile-view
// increment. The increment is eventually consistent; a failed publish never
// fails the read.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUserID(ctx, c.Param("userId"))
	if err != nil {
		return repoError(c, err)
	}
	_ = h.Publisher.PublishCounter(ctx, queue.CounterEvent{
		Entity: queue.EntityUser, UserID: u.UserID, Field: queue.FieldViews,
	})
	return c.JSON(http.StatusOK, toUserResp(u, false))
}

// Search lists users matching a keyword.
func (h *UserHandler) Search(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.Search(ctx, c.QueryParam("keyword"))
	if err != nil {
		return repoError(c, err)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u, false))
	}
	return c.JSON(http.StatusOK, out)
}

type editUserReq struct {
	Email       *string `json:"email"`
	Description *string `json:"description"`
}

// Edit updates the authenticated user's own email and description. Omitted
// fields keep their stored values.
func (h *UserHandler) Edit(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req editUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUserID(ctx, p.UserID)
	if err != nil {
		return repoError(c, err)
	}
	email, desc := u.Email, u.Description
	if req.Email != nil {
		email = *req.Email
	}
	if req.Description != nil {
		desc = *req.Description
	}
	if err := h.Users.Edit(ctx, p.UserID, email, desc); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a user account. Only the account owner (or root) may do
// this; anyone else gets the same 404 a missing user would produce.
func (h *UserHandler) Delete(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	target := c.Param("userId")
	if target != p.UserID && !p.HasRole(model.RoleRoot) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, target); err != nil {
		return repoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Follow queues follower/following refreshes for the target and the actor.
func (h *UserHandler) Follow(c echo.Context) error {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	target := c.Param("userId")
	if target == p.UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot follow yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByUserID(ctx, target); err != nil {
		return repoError(c, err)
	}
	_ = h.Publisher.PublishCounter(ctx, queue.CounterEvent{
		Entity: queue.EntityUser, UserID: target, Field: queue.FieldFollowers, Delta: 1,
	})
	_ = h.Publisher.PublishCounter(ctx, queue.CounterEvent{
		Entity: queue.EntityUser, UserID: p.UserID, Field: queue.FieldFollowings, Delta: 1,
	})
	return c.NoContent(http.StatusAccepted)
}
