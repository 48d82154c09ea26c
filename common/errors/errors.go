package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error. The launchpad API encodes it as
// {"error": "..."} and the client decodes non-2xx bodies back into it.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message, so the shared
// values below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error) *Error {
	return New(base.Code, base.Message, err)
}

// Common error types
var (
	ErrNotFound        = New(http.StatusNotFound, "Not found", nil)
	ErrTooManyRequests = New(http.StatusTooManyRequests, "Too many requests. Please slow down and try again.", nil)
	ErrInternalServer  = New(http.StatusInternalServerError, "Internal server error", nil)
)

// StatusCode returns the HTTP status carried by err, or 500.
func StatusCode(err error) int {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Message returns the user-facing message carried by err, or fallback when err
// is not an *Error or carries none.
func Message(err error, fallback string) string {
	var appErr *Error
	if stderrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// ErrorMiddleware renders the last gin error as a JSON error response.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			appErr := asAppError(c.Errors.Last().Err)
			c.AbortWithStatusJSON(appErr.Code, appErr)
		}
	}
}

func asAppError(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternalServer, err)
}
