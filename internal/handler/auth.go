package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leduoyang/connect-backend/internal/auth"
	"github.com/leduoyang/connect-backend/internal/config"
	"github.com/leduoyang/connect-backend/internal/repository"
)

// AuthHandler bundles dependencies for the signup and signin endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Codec    *auth.Codec
	Verifier *auth.Verifier
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, codec *auth.Codec, verifier *auth.Verifier) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Codec: codec, Verifier: verifier}
}

type signUpReq struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInReq struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type signInResp struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignUp creates a user. Duplicate user id or email is a 409 and leaves the
// existing record untouched.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.UserID == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Create(ctx, req.UserID, req.Email, req.Password, h.Cfg.BcryptCost); err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user_id": req.UserID})
}

// SignIn verifies credentials and returns a fresh access token. Unknown user
// and wrong password produce the same 401.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if !h.Verifier.Verify(ctx, req.UserID, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	u, err := h.Users.GetByUserID(ctx, req.UserID)
	if err != nil {
		return repoError(c, err)
	}

	token, err := h.Codec.Issue(u.UserID, []string{u.Role})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	claims, err := h.Codec.Decode(token)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, signInResp{
		UserID:    u.UserID,
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
	})
}
