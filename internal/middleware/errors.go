package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskhub/internal/apperror"
	"taskhub/pkg/logger"
)

// ErrorResponder renders every handler error as JSON with an "error" field.
// Causes and stacks are only exposed when development is true.
func ErrorResponder(development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr, ok := apperror.As(err)
		if !ok {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			appErr = apperror.Internal("Internal server error", err)
		}

		body := fiber.Map{"error": appErr.Message}
		for k, v := range appErr.Fields {
			body[k] = v
		}

		status := appErr.Status()
		switch {
		case status >= fiber.StatusInternalServerError:
			logger.ErrorLogger.Error(appErr.Message,
				zap.String("method", c.Method()),
				zap.String("url", c.OriginalURL()),
				zap.Error(appErr.Err),
			)
			if development {
				if appErr.Err != nil {
					body["details"] = appErr.Err.Error()
				}
				if len(appErr.Stack) > 0 {
					body["stack"] = string(appErr.Stack)
				}
			}
		case appErr.Kind == apperror.KindAuth:
			logger.SecurityLogger.Warn(appErr.Message, zap.String("url", c.OriginalURL()), zap.String("ip", c.IP()))
		}

		return c.Status(status).JSON(body)
	}
}
