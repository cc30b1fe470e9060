package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failing  bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("broken pipe")
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.messages...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestPublishReachesOnlyOwner(t *testing.T) {
	hub, _ := startHub(t)

	mine := &fakeConn{}
	theirs := &fakeConn{}
	hub.Register(&Client{Conn: mine, UserID: "alice"})
	hub.Register(&Client{Conn: theirs, UserID: "bob"})

	hub.Publish(EventTaskCreated, models.Task{ID: "t1", Title: "buy milk", CreatedBy: "alice"})

	require.Eventually(t, func() bool { return len(mine.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.Connected("bob"))
	assert.Empty(t, theirs.received())

	var payload struct {
		Type string      `json:"type"`
		Task models.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(mine.received()[0], &payload))
	assert.Equal(t, EventTaskCreated, payload.Type)
	assert.Equal(t, "t1", payload.Task.ID)
}

func TestFailingClientIsDropped(t *testing.T) {
	hub, _ := startHub(t)

	broken := &fakeConn{failing: true}
	hub.Register(&Client{Conn: broken, UserID: "alice"})
	require.Equal(t, 1, hub.Connected("alice"))

	hub.Publish(EventTaskUpdated, models.Task{ID: "t1", CreatedBy: "alice"})

	require.Eventually(t, func() bool { return hub.Connected("alice") == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, broken.isClosed())
}

func TestUnregisterAndShutdown(t *testing.T) {
	hub, cancel := startHub(t)

	a := &fakeConn{}
	b := &fakeConn{}
	ca := &Client{Conn: a, UserID: "alice"}
	hub.Register(ca)
	hub.Register(&Client{Conn: b, UserID: "alice"})
	require.Equal(t, 2, hub.Connected("alice"))

	hub.Unregister(ca)
	assert.Equal(t, 1, hub.Connected("alice"))
	assert.True(t, a.isClosed())

	cancel()
	require.Eventually(t, b.isClosed, time.Second, 5*time.Millisecond)

	late := &fakeConn{}
	hub.Register(&Client{Conn: late, UserID: "alice"})
	assert.True(t, late.isClosed())
	assert.Equal(t, 0, hub.Connected("alice"))
}
