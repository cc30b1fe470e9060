package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPasswordNeverSerialized(t *testing.T) {
	u := User{ID: "1", Username: "abc", Email: "a@b.com", Password: "$2a$12$hash", IsActive: true}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.NotContains(t, string(raw), "password")
}

func TestTaskUpdateApplyOnlyProvided(t *testing.T) {
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{Title: "buy milk", Description: "from the store today", DueDate: due, Priority: PriorityMedium, Status: StatusTodo}

	completed := StatusCompleted
	upd := TaskUpdate{Status: &completed}
	upd.Apply(&task)

	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, "buy milk", task.Title)
	assert.Equal(t, "from the store today", task.Description)
	assert.Equal(t, due, task.DueDate)
	assert.Equal(t, PriorityMedium, task.Priority)
}
