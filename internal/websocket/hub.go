package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"taskhub/internal/models"
	"taskhub/pkg/logger"
)

const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one open socket belonging to UserID.
type Client struct {
	Conn   Conn
	UserID string
	Mu     sync.Mutex
}

// Event is delivered to every socket of UserID.
type Event struct {
	UserID string
	Type   string
	Task   models.Task
}

type eventPayload struct {
	Type string      `json:"type"`
	Task models.Task `json:"task"`
}

// Hub fans task events out to the owning user's sockets.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	count      chan countRequest
	done       chan struct{}
}

type countRequest struct {
	userID string
	reply  chan int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan countRequest),
		done:       make(chan struct{}),
	}
}

// Register adds c. After Run has returned it closes c instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Conn.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues an event. It never blocks the request path; when the
// queue is full the event is dropped.
func (h *Hub) Publish(eventType string, task models.Task) {
	select {
	case h.broadcast <- Event{UserID: task.CreatedBy, Type: eventType, Task: task}:
	default:
		logger.ErrorLogger.Error("Dropping task event, hub queue full",
			zap.String("type", eventType), zap.String("task_id", task.ID))
	}
}

// Connected returns the number of open sockets for userID.
func (h *Hub) Connected(userID string) int {
	req := countRequest{userID: userID, reply: make(chan int, 1)}
	select {
	case h.count <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// Run owns the client set until ctx is done, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					client.Conn.Close()
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return
		case client := <-h.register:
			set, ok := h.clients[client.UserID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.UserID] = set
			}
			set[client] = true
		case client := <-h.unregister:
			h.remove(client)
		case req := <-h.count:
			req.reply <- len(h.clients[req.userID])
		case event := <-h.broadcast:
			message, err := json.Marshal(eventPayload{Type: event.Type, Task: event.Task})
			if err != nil {
				logger.ErrorLogger.Error("Error encoding task event", zap.Error(err))
				continue
			}
			for client := range h.clients[event.UserID] {
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, message)
				client.Mu.Unlock()
				if err != nil {
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	client.Conn.Close()
}
