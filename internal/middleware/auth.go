package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskhub/internal/apperror"
	"taskhub/internal/auth"
	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/pkg/logger"
)

// AuthedHandler receives the user resolved from the request's token.
type AuthedHandler func(c *fiber.Ctx, user *models.User) error

// Authenticator resolves bearer tokens into users.
type Authenticator struct {
	tokens *auth.TokenService
	users  repository.UserRepository
}

func NewAuthenticator(tokens *auth.TokenService, users repository.UserRepository) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Protect admits the request only when the Authorization header carries a
// valid bearer token for an existing user; next never runs otherwise.
func (a *Authenticator) Protect(next AuthedHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return apperror.Unauthorized("Not authorized, no token")
		}
		user, err := a.resolve(c, raw)
		if err != nil {
			return err
		}
		return next(c, user)
	}
}

// ProtectSocket is Protect for websocket upgrades, where browsers cannot
// set headers: it also accepts the token as the "token" query parameter.
func (a *Authenticator) ProtectSocket(next AuthedHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			raw = c.Query("token")
		}
		if raw == "" {
			return apperror.Unauthorized("Not authorized, no token")
		}
		user, err := a.resolve(c, raw)
		if err != nil {
			return err
		}
		return next(c, user)
	}
}

func (a *Authenticator) resolve(c *fiber.Ctx, raw string) (*models.User, error) {
	claims, err := a.tokens.Verify(raw)
	if err != nil {
		logger.SecurityLogger.Warn("Rejected token",
			zap.String("ip", c.IP()), zap.String("url", c.OriginalURL()), zap.Error(err))
		return nil, apperror.Unauthorized("Not authorized")
	}
	user, err := a.users.FindByID(c.UserContext(), claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		logger.SecurityLogger.Warn("Token for unknown user", zap.String("user_id", claims.UserID))
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, apperror.Internal("Failed to load user", err)
	}
	return user, nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
