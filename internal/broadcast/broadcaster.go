package broadcast

import (
	"encoding/json"
	"log"

	"github.com/campus-eats/canteen-platform/pkg/events"
)

// Frame is the wire shape every subscriber receives. Event carries the
// kind-specific name on room deliveries and the generic menu-update name on
// the global feed. Origin identifies the publishing server instance so the
// relay bridge can drop frames it published itself.
type Frame struct {
	Event  string          `json:"event"`
	Origin string          `json:"origin,omitempty"`
	Data   events.Envelope `json:"data"`
}

// Relay forwards envelopes to peer server instances. Delivery is best-effort;
// a relay error never fails the mutation that produced the envelope.
type Relay interface {
	Publish(envelope events.Envelope) error
}

// Broadcaster turns committed mutations into frames and fans them out: once
// into the canteen's room under the kind-specific event name, once onto the
// global feed under the generic name, and once to the relay if one is wired.
type Broadcaster struct {
	hub      *Hub
	relay    Relay
	instance string
}

func NewBroadcaster(hub *Hub, relay Relay, instance string) *Broadcaster {
	return &Broadcaster{
		hub:      hub,
		relay:    relay,
		instance: instance,
	}
}

func (b *Broadcaster) Publish(envelope events.Envelope) {
	b.fanOut(envelope)

	if b.relay == nil {
		return
	}
	if err := b.relay.Publish(envelope); err != nil {
		// Non-fatal: the commit already stands, only peer freshness degrades.
		log.Printf("Relay publish error for %s: %v", envelope.Kind, err)
	}
}

// PublishLocal fans out without touching the relay. The bridge uses it for
// envelopes that arrived from a peer instance.
func (b *Broadcaster) PublishLocal(envelope events.Envelope) {
	b.fanOut(envelope)
}

func (b *Broadcaster) fanOut(envelope events.Envelope) {
	scoped, err := json.Marshal(Frame{
		Event:  string(envelope.Kind),
		Origin: b.instance,
		Data:   envelope,
	})
	if err != nil {
		log.Printf("Frame serialization error for %s: %v", envelope.Kind, err)
		return
	}
	b.hub.BroadcastRoom(envelope.CanteenID, scoped)

	global, err := json.Marshal(Frame{
		Event:  events.GlobalEventName,
		Origin: b.instance,
		Data:   envelope,
	})
	if err != nil {
		log.Printf("Frame serialization error for %s: %v", envelope.Kind, err)
		return
	}
	b.hub.BroadcastGlobal(global)
}
