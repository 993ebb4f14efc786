package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// envelope is the wire frame for every websocket event. Exclude names a
// connection that must not receive the event; it only means something on the
// instance that owns that connection.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
	Exclude string `json:"exclude,omitempty"`
}

// Hub owns the recipient set and the presence registry and fans events out
// to every connected client. All enqueueing for one broadcast happens under
// the hub mutex, so every client observes successive broadcast calls in
// call order.
type Hub struct {
	registry *Registry
	logger   *log.Logger

	publisher *redis.Client
	channel   string

	mu      sync.Mutex
	clients map[string]*Client
}

// NewHub creates a hub around the given presence registry.
func NewHub(registry *Registry, logger *log.Logger) *Hub {
	if registry == nil {
		panic("realtime.NewHub: registry is nil")
	}
	if logger == nil {
		logger = log.New()
	}
	return &Hub{
		registry: registry,
		logger:   logger,
		clients:  make(map[string]*Client),
	}
}

// WithPublisher routes broadcasts through the given redis channel instead of
// dispatching locally. A subscriber started with SubscribeEvents feeds them
// back into every instance's hub, preserving publish order.
func (h *Hub) WithPublisher(rc *redis.Client, channel string) {
	h.publisher = rc
	h.channel = channel
}

// Registry exposes the presence registry the hub drives.
func (h *Hub) Registry() *Registry { return h.registry }

// Get resolves a connection id to its identified user.
func (h *Hub) Get(connectionID string) (domain.User, bool) {
	return h.registry.Get(connectionID)
}

// Identify finalizes the descriptor for a connection and broadcasts the
// presence change: the full list to everyone, the new descriptor to everyone
// but the connection itself.
func (h *Hub) Identify(connectionID string, id domain.Identity, at time.Time) domain.User {
	u := h.registry.Upsert(domain.NewUser(connectionID, id, at))
	h.BroadcastAll(domain.EventUsersList, h.registry.List())
	h.BroadcastExcept(connectionID, domain.EventUserConnected, u)
	h.logger.WithFields(log.Fields{
		"connection_id": connectionID,
		"username":      u.Username,
	}).Info("user identified")
	return u
}

// Disconnect drops the connection from the recipient set. Presence
// broadcasts fire only if the connection had identified; a provisional
// connection leaves without a trace beyond a debug log.
func (h *Hub) Disconnect(connectionID string) {
	h.mu.Lock()
	c, ok := h.clients[connectionID]
	if ok {
		delete(h.clients, connectionID)
		close(c.send)
	}
	h.mu.Unlock()

	u, had := h.registry.Remove(connectionID)
	if !had {
		h.logger.WithField("connection_id", connectionID).Debug("client disconnected before identifying")
		return
	}
	h.BroadcastAll(domain.EventUsersList, h.registry.List())
	h.BroadcastExcept(connectionID, domain.EventUserDisconnected, u)
	h.logger.WithFields(log.Fields{
		"connection_id": connectionID,
		"username":      u.Username,
	}).Info("user disconnected")
}

// BroadcastAll delivers the event to every connected client.
func (h *Hub) BroadcastAll(event string, payload any) {
	h.send(envelope{Event: event, Payload: payload})
}

// BroadcastExcept delivers the event to every connected client but one.
func (h *Hub) BroadcastExcept(connectionID, event string, payload any) {
	h.send(envelope{Event: event, Payload: payload, Exclude: connectionID})
}

// Unicast delivers the event to a single connection. Unlike broadcasts it
// never crosses the redis bridge: the target lives on this instance.
func (h *Hub) Unicast(connectionID, event string, payload any) {
	data, err := sonic.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		h.logger.WithError(err).Error("marshal event")
		return
	}
	h.mu.Lock()
	if c, ok := h.clients[connectionID]; ok {
		c.enqueue(data)
	}
	h.mu.Unlock()
}

func (h *Hub) send(env envelope) {
	if h.publisher == nil {
		h.dispatch(env)
		return
	}
	data, err := sonic.Marshal(env)
	if err != nil {
		h.logger.WithError(err).Error("marshal event")
		return
	}
	if err := h.publisher.Publish(context.Background(), h.channel, data).Err(); err != nil {
		h.logger.WithError(err).Error("publish event, dispatching locally")
		h.dispatch(env)
	}
}

// dispatch delivers an envelope to the local recipient set.
func (h *Hub) dispatch(env envelope) {
	exclude := env.Exclude
	env.Exclude = ""
	data, err := sonic.Marshal(env)
	if err != nil {
		h.logger.WithError(err).Error("marshal event")
		return
	}
	h.mu.Lock()
	for id, c := range h.clients {
		if id == exclude {
			continue
		}
		c.enqueue(data)
	}
	h.mu.Unlock()
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}
