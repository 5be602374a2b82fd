package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an error that knows its HTTP status.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *Error { return New(http.StatusBadRequest, message, nil) }
func NotFound(message string) *Error   { return New(http.StatusNotFound, message, nil) }
func Conflict(message string) *Error   { return New(http.StatusConflict, message, nil) }
func Forbidden(message string) *Error  { return New(http.StatusForbidden, message, nil) }

// Internal hides err from the client; it is kept for logging only.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

var (
	ErrUnauthorized = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden    = New(http.StatusForbidden, "Forbidden", nil)
)

// Respond writes err as {"error": message}. Errors that are not *Error become
// a generic 500.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		appErr = Internal("Internal server error", err)
	}
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}
