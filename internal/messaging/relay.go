package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/streadway/amqp"
)

// Relay publishes menu update envelopes onto the topic exchange so peer
// server instances can feed them to their own connected clients. Routing key
// is menu.{canteen_id}.{kind}; peers bind menu.# to receive everything.
type Relay struct {
	client   *Client
	instance string
}

func NewRelay(client *Client, instance string) *Relay {
	return &Relay{
		client:   client,
		instance: instance,
	}
}

type relayMessage struct {
	Origin   string          `json:"origin"`
	Envelope events.Envelope `json:"envelope"`
}

func (r *Relay) Publish(envelope events.Envelope) error {
	if !r.client.IsConnected() {
		return domain.ErrBroadcastUnavailable
	}

	body, err := json.Marshal(relayMessage{
		Origin:   r.instance,
		Envelope: envelope,
	})
	if err != nil {
		return fmt.Errorf("envelope serialization error: %v", err)
	}

	routingKey := fmt.Sprintf("menu.%s.%s", envelope.CanteenID, envelope.Kind)

	err = r.client.Channel().Publish(
		r.client.Exchange(),
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			// Transient on purpose: a lost event is recovered by the next
			// bootstrap fetch, never replayed.
			DeliveryMode: amqp.Transient,
			Timestamp:    envelope.UpdatedAt,
			Headers: amqp.Table{
				"origin": r.instance,
				"kind":   string(envelope.Kind),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("envelope publish error: %v", err)
	}

	return nil
}
