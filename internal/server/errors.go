package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	chatdomain "github.com/fintelhq/spendsight/internal/chat/domain"
	"github.com/fintelhq/spendsight/internal/config"
)

// apiError labels a handler failure with the user-facing error string the
// dashboard displays; the underlying cause only surfaces outside production.
type apiError struct {
	label string
	err   error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.label + ": " + e.err.Error()
	}
	return e.label
}

func (e *apiError) Unwrap() error { return e.err }

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// ErrorHandlingMiddleware turns accumulated gin errors into the JSON error
// envelope once the handler chain finishes.
func ErrorHandlingMiddleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err, cfg.IsProduction())
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, label string, err error) {
	if err == nil {
		return
	}
	_ = c.Error(&apiError{label: label, err: err})
	c.Abort()
}

func mapError(err error, production bool) (int, errorResponse) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = &apiError{label: "Internal server error", err: err}
	}

	if errors.Is(err, chatdomain.ErrNotConfigured) {
		return http.StatusInternalServerError, errorResponse{
			Error: "NL-to-SQL service not configured",
		}
	}

	resp := errorResponse{Error: apiErr.label}
	if apiErr.err != nil {
		resp.Message = apiErr.err.Error()
		if !production {
			resp.Details = apiErr.err.Error()
		}
	}
	return http.StatusInternalServerError, resp
}
