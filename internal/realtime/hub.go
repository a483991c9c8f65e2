// Package realtime fans task events out to connected websocket clients.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Client is one live connection. The network side is owned by the ws
// handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event types pushed to clients.
const (
	TaskCreated    = "task_created"
	TaskUpdated    = "task_updated"
	TaskDeleted    = "task_deleted"
	TaskCommented  = "task_commented"
	ProjectDeleted = "project_deleted"
	StoriesCreated = "user_stories_generated"
)

// Event is the message body sent to clients.
type Event struct {
	Type      string `json:"type"`
	ProjectID uint   `json:"project_id,omitempty"`
	TaskID    uint   `json:"task_id,omitempty"`
	ActorID   uint   `json:"actor_id"`
	Version   int    `json:"version"`
}

// Hub tracks connections per user id.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[Client]struct{}
	log     *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[uint]map[Client]struct{}),
		log:     log,
	}
}

// Register adds client under userID.
func (h *Hub) Register(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

// Unregister removes client and drops the user entry once empty.
func (h *Hub) Unregister(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}

// Connections returns the number of live clients for userID.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish sends evt once to every client of each distinct recipient.
// Failed sends are left for the owning handler to clean up.
func (h *Hub) Publish(evt Event, recipients ...uint) {
	const op = "realtime.Hub.Publish"

	evt.Version = 1
	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithField("operation", op).WithError(err).Error("failed to encode event")
		return
	}

	type target struct {
		userID uint
		client Client
	}
	var targets []target
	h.mu.RLock()
	seen := make(map[uint]struct{}, len(recipients))
	for _, id := range recipients {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		for c := range h.clients[id] {
			targets = append(targets, target{userID: id, client: c})
		}
	}
	h.mu.RUnlock()

	// Send is called without the lock held.
	for _, t := range targets {
		if !t.client.Send(msg) {
			h.log.WithFields(logrus.Fields{"operation": op, "user_id": t.userID}).Debug("send failed")
		}
	}
}
