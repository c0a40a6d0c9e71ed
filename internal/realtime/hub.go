package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Frame is the wire envelope delivered to subscribers.
type Frame struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newPeer(encoder *json.Encoder) *peer {
	return &peer{encoder: encoder}
}

func (p *peer) writeFrame(frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// Hub is an in-process topic registry: peers subscribe to topic strings and
// Publish fans frames out to current subscribers. Delivery is best-effort;
// a peer whose write fails is dropped from the topic.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*peer]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*peer]struct{})}
}

func (h *Hub) subscribe(p *peer, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.topics[topic]
	if !ok {
		subscribers = make(map[*peer]struct{})
		h.topics[topic] = subscribers
	}
	subscribers[p] = struct{}{}
}

func (h *Hub) unsubscribe(p *peer, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subscribers, p)
	if len(subscribers) == 0 {
		delete(h.topics, topic)
	}
}

func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic, subscribers := range h.topics {
		delete(subscribers, p)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) subscribers(topic string) []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()

	peers := make([]*peer, 0, len(h.topics[topic]))
	for p := range h.topics[topic] {
		peers = append(peers, p)
	}
	return peers
}

// Publish marshals the payload once and writes it to every current
// subscriber of the topic.
func (h *Hub) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", topic, err)
	}
	frame := Frame{Topic: topic, Data: data}

	for _, p := range h.subscribers(topic) {
		if writeErr := p.writeFrame(frame); writeErr != nil {
			h.drop(p)
		}
	}
	return nil
}
