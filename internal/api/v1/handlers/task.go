package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskhub/internal/apperror"
	"taskhub/internal/config"
	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/internal/validation"
	"taskhub/internal/websocket"
	"taskhub/pkg/logger"
)

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,min=3"`
	Description string `json:"description" validate:"required,min=10"`
	DueDate     string `json:"dueDate" validate:"required,isodatetime"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string `json:"status" validate:"omitempty,oneof=todo in-progress completed"`
}

// UpdateTaskRequest is CreateTaskRequest with every field optional.
type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3"`
	Description *string `json:"description" validate:"omitempty,min=10"`
	DueDate     *string `json:"dueDate" validate:"omitempty,isodatetime"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *string `json:"status" validate:"omitempty,oneof=todo in-progress completed"`
}

// EventPublisher is told about every task mutation.
type EventPublisher interface {
	Publish(eventType string, task models.Task)
}

// TaskHandler serves CRUD over the caller's own tasks.
type TaskHandler struct {
	tasks    repository.TaskRepository
	validate *validator.Validate
	events   EventPublisher
}

func NewTaskHandler(deps *config.Dependencies) *TaskHandler {
	h := &TaskHandler{tasks: deps.Tasks, validate: deps.Validate}
	if deps.Hub != nil {
		h.events = deps.Hub
	}
	return h
}

func (h *TaskHandler) publish(eventType string, task *models.Task) {
	if h.events != nil {
		h.events.Publish(eventType, *task)
	}
}

func requireUser(user *models.User) error {
	if user == nil || user.ID == "" {
		return apperror.Unauthorized("Unauthorized").
			With("message", "User ID is missing from context. Please ensure authentication middleware sets userId.")
	}
	return nil
}

func (h *TaskHandler) validationFailed(err error) error {
	return apperror.Validation("Validation failed").With("details", validation.FieldErrors(err))
}

// storeError maps a gateway failure onto the error taxonomy.
func storeError(err error, fallback string) error {
	var dup *repository.DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		return apperror.Conflict("Duplicate entry").
			With("message", "A task with similar details already exists")
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("Task not found")
	default:
		return apperror.Internal(fallback, err)
	}
}

func (h *TaskHandler) Create(c *fiber.Ctx, user *models.User) error {
	if err := requireUser(user); err != nil {
		return err
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := h.validate.Struct(req); err != nil {
		return h.validationFailed(err)
	}

	dueDate, err := validation.ParseDateTime(req.DueDate)
	if err != nil {
		return apperror.Validation("Invalid due date format")
	}
	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate.UTC(),
		Priority:    models.PriorityMedium,
		Status:      models.StatusTodo,
		CreatedBy:   user.ID,
	}
	if req.Priority != "" {
		task.Priority = models.Priority(req.Priority)
	}
	if req.Status != "" {
		task.Status = models.Status(req.Status)
	}

	if err := h.tasks.Create(c.UserContext(), task); err != nil {
		return storeError(err, "Failed to create task")
	}

	h.publish(websocket.EventTaskCreated, task)
	logger.AuditLogger.Info("Task created successfully", zap.String("task_id", task.ID), zap.String("user_id", user.ID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Task created successfully",
		"data":    task,
	})
}

func (h *TaskHandler) List(c *fiber.Ctx, user *models.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	tasks, err := h.tasks.ListByOwner(c.UserContext(), user.ID)
	if err != nil {
		return storeError(err, "Failed to fetch tasks")
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return c.JSON(fiber.Map{
		"message": "Tasks fetched successfully",
		"data":    tasks,
	})
}

func (h *TaskHandler) Get(c *fiber.Ctx, user *models.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	task, err := h.tasks.FindOwned(c.UserContext(), c.Params("id"), user.ID)
	if err != nil {
		return storeError(err, "Failed to fetch task")
	}
	return c.JSON(fiber.Map{
		"message": "Task fetched successfully",
		"data":    task,
	})
}

func (h *TaskHandler) Update(c *fiber.Ctx, user *models.User) error {
	if err := requireUser(user); err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	if err := h.validate.Struct(req); err != nil {
		return h.validationFailed(err)
	}

	upd := models.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueDate != nil {
		dueDate, err := validation.ParseDateTime(*req.DueDate)
		if err != nil {
			return apperror.Validation("Invalid due date format")
		}
		dueDate = dueDate.UTC()
		upd.DueDate = &dueDate
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		upd.Priority = &p
	}
	if req.Status != nil {
		s := models.Status(*req.Status)
		upd.Status = &s
	}

	task, err := h.tasks.UpdateOwned(c.UserContext(), c.Params("id"), user.ID, upd)
	if err != nil {
		return storeError(err, "Failed to update task")
	}

	h.publish(websocket.EventTaskUpdated, task)
	logger.AuditLogger.Info("Task updated", zap.String("task_id", task.ID), zap.String("user_id", user.ID))
	return c.JSON(fiber.Map{
		"message": "Task updated successfully",
		"data":    task,
	})
}

func (h *TaskHandler) Delete(c *fiber.Ctx, user *models.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	task, err := h.tasks.DeleteOwned(c.UserContext(), c.Params("id"), user.ID)
	if err != nil {
		return storeError(err, "Failed to delete task")
	}

	h.publish(websocket.EventTaskDeleted, task)
	logger.AuditLogger.Info("Task deleted", zap.String("task_id", task.ID), zap.String("user_id", user.ID))
	return c.JSON(fiber.Map{"message": "Task deleted successfully"})
}
