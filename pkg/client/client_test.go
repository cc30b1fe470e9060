package client_test

import (
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/configs"
	v1 "taskhub/internal/api/v1"
	"taskhub/internal/config"
	"taskhub/internal/repository/memstore"
	"taskhub/pkg/client"
)

func startServer(t *testing.T) string {
	t.Helper()
	cfg := configs.Config{
		Env:         configs.EnvTest,
		JWTSecret:   "client-test-secret",
		TokenTTL:    time.Hour,
		BcryptCost:  4,
		CORSOrigins: "*",
	}
	store := memstore.New()
	app := v1.NewApp(config.New(cfg, store.Users(), store.Tasks()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String() + "/api/v1"
}

func TestClientSession(t *testing.T) {
	c := client.New(startServer(t))

	assert.ErrorIs(t, c.RequireSession(), client.ErrLoginRequired)

	reg, err := c.Register("a@b.com", "Abcdef1!", "abc")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	require.NotNil(t, reg.User)
	assert.Equal(t, "abc", reg.User.Username)
	assert.NoError(t, c.RequireSession())

	me, err := c.Me()
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, me.ID)

	require.NoError(t, c.Logout())
	assert.ErrorIs(t, c.RequireSession(), client.ErrLoginRequired)

	_, err = c.Me()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Status)
	assert.Equal(t, "Not authorized, no token", apiErr.Message)

	login, err := c.Login("A@B.com", "Abcdef1!")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "Signin successful", login.Message)
}

func TestClientTasks(t *testing.T) {
	c := client.New(startServer(t))
	_, err := c.Register("t@b.com", "Abcdef1!", "tasker")
	require.NoError(t, err)

	task, err := c.CreateTask(client.TaskInput{
		Title:       "buy milk",
		Description: "from the store today",
		DueDate:     "2025-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "todo", string(task.Status))
	assert.Equal(t, "medium", string(task.Priority))

	status := "completed"
	updated, err := c.UpdateTask(task.ID, client.TaskPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "completed", string(updated.Status))
	assert.Equal(t, "buy milk", updated.Title)

	tasks, err := c.ListTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	got, err := c.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	require.NoError(t, c.DeleteTask(task.ID))
	_, err = c.GetTask(task.ID)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, "Task not found", apiErr.Message)
}

func TestClientValidationMessage(t *testing.T) {
	c := client.New(startServer(t))
	_, err := c.Register("bad", "Abcdef1!", "abc")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, "Please provide a valid email address", apiErr.Message)
}

func TestFileTokenStore(t *testing.T) {
	store := client.NewFileTokenStore(filepath.Join(t.TempDir(), "session", "token"))

	token, err := store.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.SetToken("abc.def.ghi"))
	token, err = store.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	token, err = store.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestUnreachableServer(t *testing.T) {
	c := client.New("http://127.0.0.1:1/api/v1", client.WithTimeout(time.Second))
	_, err := c.Login("a@b.com", "x")
	require.Error(t, err)
	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr))
}
