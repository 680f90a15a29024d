package livemenu

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// frame mirrors the wire shape the broadcaster sends.
type frame struct {
	Event  string          `json:"event"`
	Origin string          `json:"origin,omitempty"`
	Data   events.Envelope `json:"data"`
}

type command struct {
	Action    string    `json:"action"`
	CanteenID uuid.UUID `json:"canteen_id,omitempty"`
}

// Transport is the websocket leg of a live menu subscription: it dials the
// platform, joins the canteen room, and pumps incoming envelopes into the
// reconciliation client until the socket drops.
type Transport struct {
	url  string
	conn *websocket.Conn
}

// Dial connects to the platform's websocket endpoint, e.g.
// ws://host:8080/ws.
func Dial(ctx context.Context, wsURL string) (*Transport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial error (status %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial error: %v", err)
	}

	return &Transport{url: wsURL, conn: conn}, nil
}

// JoinCanteen subscribes to a canteen room. Idempotent on the server side.
func (t *Transport) JoinCanteen(canteenID uuid.UUID) error {
	return t.send(command{Action: "join-canteen", CanteenID: canteenID})
}

// LeaveCanteen unsubscribes from a canteen room.
func (t *Transport) LeaveCanteen(canteenID uuid.UUID) error {
	return t.send(command{Action: "leave-canteen", CanteenID: canteenID})
}

// JoinGlobal subscribes to the unscoped cross-canteen feed.
func (t *Transport) JoinGlobal() error {
	return t.send(command{Action: "join-global"})
}

func (t *Transport) send(cmd command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("command serialization error: %v", err)
	}

	t.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("command send error: %v", err)
	}
	return nil
}

// Listen reads frames and applies their envelopes to the client until the
// connection fails or ctx is cancelled. On failure the client is dropped to
// Bootstrapping; the caller decides when to redial and re-bootstrap.
func (t *Transport) Listen(ctx context.Context, client *Client) error {
	go func() {
		<-ctx.Done()
		t.conn.Close()
	}()

	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				client.Disconnect()
				return ctx.Err()
			}
			client.OnTransportError(err)
			return fmt.Errorf("websocket read error: %v", err)
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			log.Printf("Dropping malformed frame: %v", err)
			continue
		}

		client.Apply(f.Data)
	}
}

func (t *Transport) Close() error {
	return t.conn.Close()
}
