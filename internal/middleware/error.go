package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Vasheegaran/ExpenseTrack/internal/errors"
	"github.com/Vasheegaran/ExpenseTrack/internal/logger"
)

// ErrorHandler returns a Gin middleware that renders the last error pushed
// onto c.Errors as {"error":{"code","message"}}. AppErrors keep their code
// and message; anything else becomes a generic internal error. Internal
// causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			logger.ForRequest(RequestID(c)).Errorw("unexpected error",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			appErr = apperrors.ErrInternalServer
		} else if appErr.Internal != nil {
			logger.ForRequest(RequestID(c)).Errorw("app error",
				"code", appErr.Code,
				"message", appErr.Message,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}

		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
	}
}
