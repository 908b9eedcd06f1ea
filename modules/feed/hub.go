package feed

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// Conn is the write side of a subscriber connection; *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscriber is a connection listening to one ZIP.
type Subscriber struct {
	ID   string
	Zip  string
	Conn Conn
}

type outbound struct {
	zip  string
	data []byte
}

// Hub fans lifecycle messages out to subscribers grouped by ZIP.
type Hub struct {
	subscribers map[string]*Subscriber
	zips        map[string]map[string]struct{}
	register    chan *Subscriber
	unregister  chan *Subscriber
	broadcast   chan outbound
	done        chan struct{}
	mu          sync.RWMutex
	logger      types.Logger
}

// NewHub creates a Hub. Run must be started before use.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		zips:        make(map[string]map[string]struct{}),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		broadcast:   make(chan outbound, 256),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

func normalizeZip(zip string) string {
	return strings.ToLower(strings.TrimSpace(zip))
}

// Run serves the hub until ctx is cancelled, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case sub := <-h.register:
			h.add(sub)
		case sub := <-h.unregister:
			h.remove(sub)
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() {
	<-h.done
}

// Register subscribes sub to its ZIP. It is a no-op once the hub has stopped.
func (h *Hub) Register(sub *Subscriber) {
	select {
	case h.register <- sub:
	case <-h.done:
	}
}

// Unregister removes sub.
func (h *Hub) Unregister(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues payload for every subscriber of zip. Messages are dropped
// when the queue is full.
func (h *Hub) Publish(zip string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{zip: normalizeZip(zip), data: data}:
	case <-h.done:
	default:
		h.logger.Warn("Feed queue full, dropping message", "zip", zip)
	}
	return nil
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ZipCount returns the number of subscribers for zip.
func (h *Hub) ZipCount(zip string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.zips[normalizeZip(zip)])
}

func (h *Hub) add(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	zip := normalizeZip(sub.Zip)
	h.subscribers[sub.ID] = sub
	if h.zips[zip] == nil {
		h.zips[zip] = make(map[string]struct{})
	}
	h.zips[zip][sub.ID] = struct{}{}
	h.logger.Debug("Feed subscriber registered", "id", sub.ID, "zip", zip)
}

func (h *Hub) remove(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.ID]; !ok {
		return
	}
	delete(h.subscribers, sub.ID)
	zip := normalizeZip(sub.Zip)
	delete(h.zips[zip], sub.ID)
	if len(h.zips[zip]) == 0 {
		delete(h.zips, zip)
	}
	h.logger.Debug("Feed subscriber unregistered", "id", sub.ID, "zip", zip)
}

func (h *Hub) send(msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.zips[msg.zip] {
		sub := h.subscribers[id]
		if err := sub.Conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
			h.logger.Warn("Failed to write to feed subscriber", "id", id, "error", err)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		_ = sub.Conn.Close()
	}
	h.subscribers = make(map[string]*Subscriber)
	h.zips = make(map[string]map[string]struct{})
}
