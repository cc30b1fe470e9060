// Package client is a Go client for the task API. It keeps the session token
// in a TokenStore and attaches it as a bearer token to every request.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"taskhub/internal/models"
)

const DefaultTimeout = 10 * time.Second

// ErrLoginRequired is returned by RequireSession when no token is stored.
var ErrLoginRequired = errors.New("login required")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	timeout time.Duration
	tokens  TokenStore
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:5000/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		tokens:  NewMemoryTokenStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type AuthResult struct {
	Message string             `json:"message"`
	Token   string             `json:"token"`
	User    *models.PublicUser `json:"user"`
}

type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
}

// TaskPatch is a partial update; nil fields are not sent.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type taskEnvelope struct {
	Message string      `json:"message"`
	Data    models.Task `json:"data"`
}

type taskListEnvelope struct {
	Message string        `json:"message"`
	Data    []models.Task `json:"data"`
}

// RequireSession gates views that need a logged-in user.
func (c *Client) RequireSession() error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	if token == "" {
		return ErrLoginRequired
	}
	return nil
}

func (c *Client) Logout() error {
	return c.tokens.Clear()
}

func (c *Client) Register(email, password, username string) (*AuthResult, error) {
	var out AuthResult
	body := fiber.Map{"email": email, "password": password, "username": username}
	if err := c.do(fiber.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, c.tokens.SetToken(out.Token)
}

func (c *Client) Login(email, password string) (*AuthResult, error) {
	var out AuthResult
	body := fiber.Map{"email": email, "password": password}
	if err := c.do(fiber.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, c.tokens.SetToken(out.Token)
}

func (c *Client) Me() (*models.UserRef, error) {
	var out struct {
		User models.UserRef `json:"user"`
	}
	if err := c.do(fiber.MethodPost, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) CreateTask(in TaskInput) (*models.Task, error) {
	var out taskEnvelope
	if err := c.do(fiber.MethodPost, "/task", in, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) ListTasks() ([]models.Task, error) {
	var out taskListEnvelope
	if err := c.do(fiber.MethodGet, "/task", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) GetTask(id string) (*models.Task, error) {
	var out taskEnvelope
	if err := c.do(fiber.MethodGet, "/task/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) UpdateTask(id string, patch TaskPatch) (*models.Task, error) {
	var out taskEnvelope
	if err := c.do(fiber.MethodPatch, "/task/"+id, patch, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) DeleteTask(id string) error {
	return c.do(fiber.MethodDelete, "/task/"+id, nil, nil)
}

func (c *Client) do(method, path string, in, out any) error {
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}
	agent.Timeout(c.timeout)

	token, err := c.tokens.Token()
	if err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}
	if token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if in != nil {
		agent.JSON(in)
	}

	// Bytes releases the agent.
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if status < 200 || status >= 300 {
		return &APIError{Status: status, Message: errorMessage(status, body)}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// errorMessage prefers the body's "message", then "error".
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return utils.StatusMessage(status)
}
