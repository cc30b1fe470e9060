// Package repotest holds the behavior every persistence backend must share.
// Backend packages call Run from their tests.
package repotest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
	"taskhub/internal/repository"
)

// Run exercises users and tasks. Each call must get gateways over an empty
// store or at least one whose data cannot collide with generated names.
func Run(t *testing.T, users repository.UserRepository, tasks repository.TaskRepository) {
	t.Run("users", func(t *testing.T) { runUsers(t, users) })
	t.Run("tasks", func(t *testing.T) { runTasks(t, users, tasks) })
}

var counter atomic.Uint64

func unique(prefix string) string {
	return fmt.Sprintf("%s%d_%d", prefix, time.Now().UnixNano(), counter.Add(1))
}

func newUser(t *testing.T, users repository.UserRepository) *models.User {
	t.Helper()
	name := unique("user")
	u := &models.User{Username: name, Email: name + "@example.com", Password: "$2a$04$hash", IsActive: true}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func runUsers(t *testing.T, users repository.UserRepository) {
	ctx := context.Background()

	u := newUser(t, users)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := users.FindByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "$2a$04$hash", byEmail.Password)

	byID, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, byID.Username)
	assert.Empty(t, byID.Password, "by-id projection must exclude the password")
	assert.True(t, byID.IsActive)

	either, err := users.FindByEmailOrUsername(ctx, "nobody@example.com", u.Username)
	require.NoError(t, err)
	assert.Equal(t, u.ID, either.ID)

	_, err = users.FindByEmailOrUsername(ctx, "nobody@example.com", "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = users.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	dupEmail := &models.User{Username: unique("other"), Email: u.Email, Password: "x"}
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, users.Create(ctx, dupEmail), &dup)
	assert.Equal(t, "email", dup.Field)

	dupName := &models.User{Username: u.Username, Email: unique("other") + "@example.com", Password: "x"}
	require.ErrorAs(t, users.Create(ctx, dupName), &dup)
	assert.Equal(t, "username", dup.Field)
}

func runTasks(t *testing.T, users repository.UserRepository, tasks repository.TaskRepository) {
	ctx := context.Background()
	owner := newUser(t, users)
	stranger := newUser(t, users)
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := &models.Task{Title: "first", Description: "the first task", DueDate: due,
		Priority: models.PriorityLow, Status: models.StatusTodo, CreatedBy: owner.ID}
	require.NoError(t, tasks.Create(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	time.Sleep(5 * time.Millisecond)
	second := &models.Task{Title: "second", Description: "the second task", DueDate: due,
		Priority: models.PriorityHigh, Status: models.StatusTodo, CreatedBy: owner.ID}
	require.NoError(t, tasks.Create(ctx, second))

	list, err := tasks.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	empty, err := tasks.ListByOwner(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	got, err := tasks.FindOwned(ctx, first.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, got.DueDate.Equal(due))
	assert.Equal(t, owner.ID, got.CreatedBy)

	_, err = tasks.FindOwned(ctx, first.ID, stranger.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = tasks.FindOwned(ctx, "not-an-id", owner.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	completed := models.StatusCompleted
	updated, err := tasks.UpdateOwned(ctx, first.ID, owner.ID, models.TaskUpdate{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, "first", updated.Title)
	assert.Equal(t, "the first task", updated.Description)
	assert.Equal(t, models.PriorityLow, updated.Priority)
	assert.True(t, updated.DueDate.Equal(due))

	_, err = tasks.UpdateOwned(ctx, first.ID, stranger.ID, models.TaskUpdate{Status: &completed})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = tasks.DeleteOwned(ctx, first.ID, stranger.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	deleted, err := tasks.DeleteOwned(ctx, first.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)

	_, err = tasks.FindOwned(ctx, first.ID, owner.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = tasks.DeleteOwned(ctx, first.ID, owner.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
