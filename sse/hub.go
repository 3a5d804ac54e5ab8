package sse

import (
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/kbukum/livecue/logger"
)

const defaultClientBuffer = 256

// Client represents a connected SSE client.
type Client struct {
	id     string
	topics []string
	events chan []byte
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	topics []string
	buffer int
}

// WithTopics limits the client to events whose type matches one of the
// glob patterns. The default is every event.
func WithTopics(patterns ...string) ClientOption {
	return func(o *clientOptions) { o.topics = append(o.topics, patterns...) }
}

// WithBuffer sets how many frames may queue before the client starts
// losing events.
func WithBuffer(n int) ClientOption {
	return func(o *clientOptions) { o.buffer = n }
}

// NewClient creates a new SSE client.
func NewClient(id string, opts ...ClientOption) *Client {
	o := clientOptions{buffer: defaultClientBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.topics) == 0 {
		o.topics = []string{"*"}
	}
	return &Client{
		id:     id,
		topics: o.topics,
		events: make(chan []byte, o.buffer),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Topics returns the client's topic patterns.
func (c *Client) Topics() []string { return slices.Clone(c.topics) }

// Wants reports whether the client subscribes to topic. Malformed patterns
// match nothing.
func (c *Client) Wants(topic string) bool {
	for _, p := range c.topics {
		if ok, err := filepath.Match(p, topic); err == nil && ok {
			return true
		}
	}
	return false
}

// Events returns the channel for receiving frames.
func (c *Client) Events() <-chan []byte { return c.events }

// Send queues a frame. It returns false if the client is too slow and the
// frame was dropped.
func (c *Client) Send(frame []byte) bool {
	select {
	case c.events <- frame:
		return true
	default:
		return false
	}
}

// Close closes the client's event channel.
func (c *Client) Close() { close(c.events) }

// Message is an encoded event queued for broadcast.
type Message struct {
	Topic  string
	Retain string
	Data   []byte
}

// Hub manages SSE client connections and message broadcasting.
type Hub struct {
	clients    map[string]*Client
	retained   map[string]Message
	order      []string
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	stopped    bool
	dropped    atomic.Uint64
	log        *logger.Logger
	mu         sync.RWMutex
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) HubOption {
	return func(h *Hub) { h.log = l }
}

// NewHub creates a new SSE hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		retained:   make(map[string]Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get("sse")
	}
	return h
}

// Run starts the hub's event loop. It blocks until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.id]; ok {
				old.Close()
			}
			h.clients[client.id] = client
			n := len(h.clients)
			h.mu.Unlock()
			h.replay(client)
			h.log.Debug("client registered", logger.Fields("client_id", client.id, "total_clients", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.id]; ok && cur == client {
				delete(h.clients, client.id)
				client.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", client.id, "total_clients", n))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop signals the hub to shut down. It closes all client connections
// and causes Run to return. Safe to call multiple times.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
}

// Register adds a client to the hub. The client first receives the
// retained events it subscribes to. It returns false once the hub is
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub and closes its channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish encodes ev and queues it for delivery. Events published after
// Stop are discarded.
func (h *Hub) Publish(ev Event) error {
	frame, err := Encode(ev)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- Message{Topic: ev.Type, Retain: ev.Retain, Data: frame}:
	case <-h.done:
	}
	return nil
}

// deliver runs on the hub goroutine.
func (h *Hub) deliver(msg Message) {
	h.mu.Lock()
	if msg.Retain != "" {
		if _, ok := h.retained[msg.Retain]; !ok {
			h.order = append(h.order, msg.Retain)
		}
		h.retained[msg.Retain] = msg
	}
	defer h.mu.Unlock()

	for _, client := range h.clients {
		if !client.Wants(msg.Topic) {
			continue
		}
		if !client.Send(msg.Data) {
			h.dropped.Add(1)
			h.log.Warn("client too slow, dropping event", logger.Fields("client_id", client.id, "event", msg.Topic))
		}
	}
}

// replay sends retained events to a newly registered client in the order
// their slots were first filled.
func (h *Hub) replay(client *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, key := range h.order {
		msg := h.retained[key]
		if client.Wants(msg.Topic) {
			client.Send(msg.Data)
		}
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetClientIDs returns a list of all connected client IDs.
func (h *Hub) GetClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Dropped returns how many frames were dropped for slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

var _ Broadcaster = (*Hub)(nil)
