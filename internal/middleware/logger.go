package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskhub/internal/apperror"
	"taskhub/pkg/logger"
)

// RequestLogger logs every request and turns panics into 500 errors.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.ErrorLogger.Error(fmt.Sprintf("Recovered from panic: %v", r), zap.String("stack", string(stack)))
				err = &apperror.Error{
					Kind:    apperror.KindServer,
					Message: "Internal server error",
					Err:     fmt.Errorf("panic: %v", r),
					Stack:   stack,
				}
			}
		}()

		err = c.Next()

		logger.RequestLogger.Info("Incoming request",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	}
}
