package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30 * time.Second
	PongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
)

// Broker carries feed messages between server instances.
type Broker interface {
	PublishEventMessage(eventID uuid.UUID, event string, payload []byte) error
	SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains event_id -> set of connections and broadcasts messages.
// With a Broker, published messages round-trip through it so every instance delivers them once.
type Hub struct {
	rooms  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	broker Broker
	logger *zap.Logger
}

// NewHub creates a new live feed hub. broker may be nil for a single instance.
func NewHub(broker Broker, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		broker: broker,
		logger: logger,
	}
}

// Register adds a client to its event room, subscribing to the broker for the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.EventID] == nil {
		h.rooms[c.EventID] = make(map[string]*Client)
		if h.broker != nil {
			eventID := c.EventID
			cancel, err := h.broker.SubscribeEvent(eventID, func(event string, payload []byte) {
				h.Broadcast(eventID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("feed subscribe failed", zap.Error(err), zap.String("event_id", eventID.String()))
			} else {
				h.subs[eventID] = cancel
			}
		}
	}
	h.rooms[c.EventID][c.ID] = c
	count := len(h.rooms[c.EventID])
	h.mu.Unlock()

	h.Broadcast(c.EventID, EventPresence, map[string]int{"count": count})
	h.logger.Debug("client joined feed", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Unregister removes a client and closes its send channel. The broker subscription ends with the last client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	m, ok := h.rooms[c.EventID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := m[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(m, c.ID)
	close(c.send)
	count := len(m)
	if count == 0 {
		delete(h.rooms, c.EventID)
		if cancel, ok := h.subs[c.EventID]; ok {
			cancel()
			delete(h.subs, c.EventID)
		}
	}
	h.mu.Unlock()

	if count > 0 {
		h.Broadcast(c.EventID, EventPresence, map[string]int{"count": count})
	}
	h.logger.Debug("client left feed", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

func encode(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

// Broadcast sends a message to all clients in an event room on this instance.
func (h *Hub) Broadcast(eventID uuid.UUID, event string, payload any) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Error("encode feed message", zap.Error(err), zap.String("event", event))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[eventID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client send buffer full", zap.String("client_id", c.ID))
		}
	}
}

// Publish delivers a message to every subscriber of the event across instances.
// Without a broker, or when publishing fails, it falls back to a local broadcast.
func (h *Hub) Publish(eventID uuid.UUID, event string, payload any) {
	if h.broker != nil {
		data, err := encode(payload)
		if err != nil {
			h.logger.Error("encode feed message", zap.Error(err), zap.String("event", event))
			return
		}
		err = h.broker.PublishEventMessage(eventID, event, data)
		if err == nil {
			return
		}
		h.logger.Warn("feed publish failed, delivering locally", zap.Error(err), zap.String("event_id", eventID.String()))
	}
	h.Broadcast(eventID, event, payload)
}

// Count returns the number of connected clients for an event on this instance.
func (h *Hub) Count(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// sendTo queues a message for one client only.
func (h *Hub) sendTo(c *Client, event string, payload any) {
	data, err := encode(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.EventID][c.ID]; !ok {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}
