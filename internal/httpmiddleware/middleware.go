// Package httpmiddleware holds the gin middleware stack shared by all routes.
package httpmiddleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"absensi/internal/apperr"
	"absensi/internal/metrics"
	"absensi/internal/response"
)

const requestIDKey = "request_id"

// RequestID tags every request with an id, reusing X-Request-ID when sent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger writes one structured line per request and feeds the HTTP metrics.
func Logger(m *metrics.Metrics, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())

		if skip[c.Request.URL.Path] {
			return
		}
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Str("client_ip", c.ClientIP()).
			Str("request_id", GetRequestID(c)).
			Dur("duration", elapsed).
			Msg("http_request")
	}
}

// BodyLimit caps the request body; reads past the limit fail with
// *http.MaxBytesError, which ErrorEnvelope reports as 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Fail(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// ErrorEnvelope translates the last error attached with c.Error into the
// response envelope. Internal causes are logged, never sent.
func ErrorEnvelope() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = apperr.TooLarge("request body too large")
		}

		status := apperr.Status(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Msg("request failed")
		}
		response.Fail(c, status, apperr.Message(err))
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("request_id", GetRequestID(c)).Msg("panic recovered")
		response.Fail(c, http.StatusInternalServerError, "internal server error")
	})
}

// SecurityHeaders sets conservative browser headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
