package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
)

const genericErrorMessage = "An error occurred while processing your request"

// HTTPError is an error annotated with the status and body code it renders as.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError builds an HTTPError.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromAskError maps an ask service error onto its HTTP rendering.
func fromAskError(err error) *HTTPError {
	switch apperrors.CodeOf(err) {
	case faq.CodeInvalidInput:
		var appErr *apperrors.AppError
		message := "Empty query provided"
		if errors.As(err, &appErr) && appErr.Message != "" {
			message = appErr.Message
		}
		return NewHTTPError(http.StatusBadRequest, "invalid_request", message, err)
	case faq.CodeServiceUnavailable:
		return NewHTTPError(http.StatusServiceUnavailable, "service_unavailable", "The service is currently unavailable", err)
	default:
		return NewHTTPError(http.StatusInternalServerError, "ask_failed", genericErrorMessage, err)
	}
}

func asHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return NewHTTPError(http.StatusInternalServerError, "internal_error", genericErrorMessage, err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
