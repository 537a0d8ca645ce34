package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrHubStopped is returned by ServeClient when a connection arrives after
// the hub shut down.
var ErrHubStopped = errors.New("websocket hub stopped")

// Hub is an explicit subscriber registry keyed by topic. Clients are added
// on connect and removed on disconnect or send failure; publishers never see
// the client set directly. Delivery is best-effort: a client whose send
// buffer is full is dropped rather than blocking the publisher.
type Hub struct {
	clients    map[*Client]bool
	topics     map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

type Event struct {
	Type      string                 `json:"type"`
	Topic     string                 `json:"topic,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// HotelAdminTopic is the topic every admin dashboard session for a hotel
// subscribes to.
func HotelAdminTopic(hotelID primitive.ObjectID) string {
	return "hotel_" + hotelID.Hex() + "_admin"
}

// DriverTopic is the per-driver topic used for session notifications such
// as a forced logout.
func DriverTopic(driverID primitive.ObjectID) string {
	return "driver_" + driverID.Hex()
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.done:
			return
		}
	}
}

// Stop terminates Run and disconnects every client. Registrations after
// Stop are not accepted.
func (h *Hub) Stop() {
	close(h.done)

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		h.removeClientLocked(client)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	for topic := range client.topics {
		h.subscribeLocked(client, topic)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.removeClientLocked(client)
}

func (h *Hub) removeClientLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for topic, subscribers := range h.topics {
		if _, exists := subscribers[client]; exists {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.topics, topic)
			}
		}
	}
}

func (h *Hub) subscribeLocked(client *Client, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
}

// Subscribe adds a connected client to an extra topic.
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	client.topics[topic] = true
	h.subscribeLocked(client, topic)
}

// Unsubscribe removes a client from a topic without disconnecting it.
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	delete(client.topics, topic)
	if subscribers, exists := h.topics[topic]; exists {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish sends an event to every subscriber of a topic. A topic with no
// subscribers is not an error. The returned error only reports payload
// marshaling failures; slow subscribers are dropped silently.
func (h *Hub) Publish(topic string, eventType string, payload map[string]interface{}) error {
	event := Event{
		Type:      eventType,
		Topic:     topic,
		Timestamp: time.Now().Unix(),
		Data:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %q: %w", eventType, err)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	subscribers, exists := h.topics[topic]
	if !exists {
		return nil
	}

	for client := range subscribers {
		select {
		case client.send <- data:
		default:
			h.removeClientLocked(client)
		}
	}

	return nil
}

// SubscriberCount reports how many clients are on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.topics[topic])
}
