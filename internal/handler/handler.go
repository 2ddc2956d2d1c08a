// Package handler maps the REST API onto the registry and attendance services.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"absensi/internal/apperr"
	"absensi/internal/attendance"
	"absensi/internal/users"
)

// Pinger is a dependency whose liveness /healthz reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the services behind the API routes.
type Handler struct {
	users      *users.Service
	attendance *attendance.Service
	checks     map[string]Pinger
}

// New builds a handler. checks may be nil.
func New(u *users.Service, a *attendance.Service, checks map[string]Pinger) *Handler {
	return &Handler{users: u, attendance: a, checks: checks}
}

// fail hands err to the ErrorEnvelope middleware and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

// bindError turns a gin binding failure into a client error. Oversized
// bodies pass through untouched so they surface as 413.
func bindError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, strings.ToLower(fe.Field())+" is "+fe.Tag())
		}
		return apperr.Validation(strings.Join(msgs, ", "))
	}
	return apperr.Validation("invalid request body")
}
