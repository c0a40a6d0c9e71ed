package realtime

import "log"

// Publisher is the transport collaborator: a best-effort topic publish with
// no delivery guarantees.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Broadcaster wraps a Publisher so callers can publish without caring
// whether a transport is wired or whether it fails. Transport failures are
// logged and dropped; they never propagate into the mutation that
// triggered them.
type Broadcaster struct {
	publisher Publisher
}

// NewBroadcaster wraps the given publisher. A nil publisher yields a no-op
// broadcaster.
func NewBroadcaster(publisher Publisher) *Broadcaster {
	return &Broadcaster{publisher: publisher}
}

// Publish sends one event on a topic, fire-and-forget.
func (b *Broadcaster) Publish(topic string, payload any) {
	if b == nil || b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(topic, payload); err != nil {
		log.Printf("realtime: publish %s: %v", topic, err)
	}
}
