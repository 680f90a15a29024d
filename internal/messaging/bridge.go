package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/streadway/amqp"
)

// reconsumeDelay paces the attempts to rebuild consumption after the broker
// connection dropped.
const reconsumeDelay = 2 * time.Second

// Bridge consumes relayed envelopes from peer instances and feeds them into
// the local fan-out. Envelopes this instance published itself are dropped by
// origin tag.
type Bridge struct {
	client   *Client
	instance string
	forward  func(envelope events.Envelope)
}

func NewBridge(client *Client, instance string, forward func(envelope events.Envelope)) *Bridge {
	return &Bridge{
		client:   client,
		instance: instance,
		forward:  forward,
	}
}

// Start establishes consumption and keeps it alive until the client shuts
// down, rebuilding the queue after every reconnect.
func (b *Bridge) Start() error {
	messages, err := b.consume()
	if err != nil {
		return err
	}

	go b.run(messages)

	return nil
}

// consume binds a server-named, auto-deleted queue to menu.# on the current
// channel. Each instance gets its own queue, so every instance sees every
// relayed envelope.
func (b *Bridge) consume() (<-chan amqp.Delivery, error) {
	if !b.client.IsConnected() {
		return nil, fmt.Errorf("no connection to RabbitMQ")
	}

	channel := b.client.Channel()

	queue, err := channel.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("queue declare error: %v", err)
	}

	err = channel.QueueBind(
		queue.Name,
		"menu.#",
		b.client.Exchange(),
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("queue bind error: %v", err)
	}

	messages, err := channel.Consume(
		queue.Name,
		b.instance, // consumer tag
		true,       // auto-ack: delivery is best-effort
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume start error: %v", err)
	}

	log.Printf("Bridge consuming relayed menu events on queue: %s", queue.Name)

	return messages, nil
}

func (b *Bridge) run(messages <-chan amqp.Delivery) {
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				// The delivery channel died with the connection. Consume
				// again once the client has reconnected; envelopes missed in
				// the gap are recovered by the next bootstrap fetch.
				messages = b.reconsume()
				if messages == nil {
					log.Printf("Bridge stopped: %s", b.instance)
					return
				}
				continue
			}
			b.handleMessage(msg)

		case <-b.client.Done():
			log.Printf("Bridge stopped: %s", b.instance)
			return
		}
	}
}

// reconsume retries the consume setup until it succeeds or the client shuts
// down, in which case it returns nil.
func (b *Bridge) reconsume() <-chan amqp.Delivery {
	for {
		select {
		case <-b.client.Done():
			return nil
		case <-time.After(reconsumeDelay):
		}

		messages, err := b.consume()
		if err != nil {
			log.Printf("Bridge reconsume error: %v", err)
			continue
		}

		log.Printf("Bridge consumption re-established: %s", b.instance)
		return messages
	}
}

func (b *Bridge) handleMessage(msg amqp.Delivery) {
	var relayed relayMessage

	if err := json.Unmarshal(msg.Body, &relayed); err != nil {
		log.Printf("Relayed envelope deserialize error: %v", err)
		return
	}

	if relayed.Origin == b.instance {
		return
	}

	b.forward(relayed.Envelope)
}
