package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xboikom1/Quiz-builder/services"
)

const (
	messageValidationFailed = "Validation failed"
	messageInternalError    = "Internal server error"
	messageRouteNotFound    = "Route not found"
)

// HTTPError is an error that carries the status code it should be reported with.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Status  int              `json:"status"`
	Message string           `json:"message"`
	Issues  []services.Issue `json:"issues,omitempty"`
}

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var validationErr *services.ValidationError
		var httpErr *HTTPError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Status:  http.StatusBadRequest,
				Message: messageValidationFailed,
				Issues:  validationErr.Issues,
			})
		case errors.As(err, &httpErr):
			c.JSON(httpErr.Status, ErrorResponse{Status: httpErr.Status, Message: httpErr.Message})
		default:
			logger.Error("unhandled request error",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			abortInternal(c)
		}
	}
}

// Recovery turns panics into the generic 500 response.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		abortInternal(c)
	})
}

func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Status: http.StatusNotFound, Message: messageRouteNotFound})
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Status:  http.StatusInternalServerError,
		Message: messageInternalError,
	})
}
