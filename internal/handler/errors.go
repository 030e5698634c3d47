package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leduoyang/connect-backend/internal/repository"
)

// repoError maps the repository error kinds onto HTTP responses. Only the
// kind and a short message cross the boundary; zero-affected-row failures
// tell the caller the sequence may be retried.
func repoError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrCreateFailed),
		errors.Is(err, repository.ErrUpdateFailed),
		errors.Is(err, repository.ErrDeleteFailed):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation did not apply, retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
