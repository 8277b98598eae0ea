package httpapi

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"booktracker/internal/apperr"
	"booktracker/pkg/models"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the envelope for a service error.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, models.Fail[any](apperr.Message(err)))
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.Fail[any]("invalid request body: "+err.Error()))
}

func ok[T any](c *gin.Context, status int, data T, message string) {
	c.JSON(status, models.OK(data, message))
}

func recoverPanic(c *gin.Context, recovered any) {
	log.Error("panic recovered", "method", c.Request.Method, "path", c.Request.URL.Path, "panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.Fail[any]("internal server error"))
}
