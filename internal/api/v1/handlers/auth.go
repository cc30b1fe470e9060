package handlers

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/apperror"
	"taskhub/internal/auth"
	"taskhub/internal/config"
	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/internal/validation"
	"taskhub/pkg/logger"
)

const minUsernameLength = 3

type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler serves registration, login and the current-user lookup.
type AuthHandler struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	validate   *validator.Validate
	bcryptCost int
}

func NewAuthHandler(deps *config.Dependencies) *AuthHandler {
	return &AuthHandler{
		users:      deps.Users,
		tokens:     deps.Tokens,
		validate:   deps.Validate,
		bcryptCost: deps.Config.BcryptCost,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		fieldErrs := validation.FieldErrors(err)
		messages := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			messages = append(messages, fe.Message)
		}
		return apperror.Validation("Missing required fields").With("errors", messages)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if !validation.ValidateEmail(email) {
		return apperror.Validation("Please provide a valid email address")
	}
	if utf8.RuneCountInString(username) < minUsernameLength {
		return apperror.Validation("Username too short").
			With("details", "Username must be at least 3 characters")
	}
	if pw := validation.ValidatePassword(req.Password); !pw.IsValid {
		return apperror.Validation("Password requirements not met").
			With("requirements", pw.Requirements)
	}

	ctx := c.UserContext()
	existing, err := h.users.FindByEmailOrUsername(ctx, email, username)
	switch {
	case err == nil:
		field := "username"
		if existing.Email == email {
			field = "email"
		}
		return conflictOn(field)
	case !errors.Is(err, repository.ErrNotFound):
		return apperror.Internal("Registration failed", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		return apperror.Internal("Registration failed", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		IsActive: true,
	}
	if err := h.users.Create(ctx, user); err != nil {
		// Lost the race against a concurrent registration.
		var dup *repository.DuplicateKeyError
		if errors.As(err, &dup) {
			return conflictOn(dup.Field)
		}
		return apperror.Internal("Registration failed", err)
	}

	token, err := h.tokens.Issue(user.ID, user.Email, user.Username)
	if err != nil {
		return apperror.Internal("Registration failed", err)
	}

	logger.AuditLogger.Info("User registered successfully", zap.String("user_id", user.ID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user.Public(),
	})
}

func conflictOn(field string) error {
	logger.SecurityLogger.Warn("Registration conflict", zap.String("field", field))
	return apperror.Conflict(field+" already in use").With("field", field)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperror.Validation("Email and password are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.users.FindByEmail(c.UserContext(), email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperror.Internal("An error occurred during signin", err)
	}
	// Unknown email and wrong password get the same answer.
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		logger.SecurityLogger.Warn("Failed login", zap.String("email", email), zap.String("ip", c.IP()))
		return apperror.Unauthorized("Invalid credentials")
	}

	token, err := h.tokens.Issue(user.ID, user.Email, user.Username)
	if err != nil {
		return apperror.Internal("An error occurred during signin", err)
	}

	logger.AuditLogger.Info("Login success", zap.String("user_id", user.ID))
	return c.JSON(fiber.Map{
		"message": "Signin successful",
		"token":   token,
		"user":    user.Ref(),
	})
}

// Me returns the identity resolved by the auth middleware.
func (h *AuthHandler) Me(c *fiber.Ctx, user *models.User) error {
	if user == nil {
		return apperror.Internal("Failed to fetch user data", errors.New("no user resolved for request"))
	}
	return c.JSON(fiber.Map{"user": user.Ref()})
}
