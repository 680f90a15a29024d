package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/campus-eats/canteen-platform/internal/broadcast"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// clientCommand is what a subscriber sends upstream. Join and leave are
// idempotent; unknown actions are logged and ignored.
type clientCommand struct {
	Action    string    `json:"action"`
	CanteenID uuid.UUID `json:"canteen_id,omitempty"`
}

const (
	actionJoinCanteen  = "join-canteen"
	actionLeaveCanteen = "leave-canteen"
	actionJoinGlobal   = "join-global"
	actionLeaveGlobal  = "leave-global"
)

// Handler upgrades HTTP requests to websocket subscriptions and wires each
// socket into the hub. No authentication happens here: room membership only
// scopes broadcasts, it grants no mutation rights.
type Handler struct {
	hub *broadcast.Hub
}

func NewHandler(hub *broadcast.Hub) *Handler {
	return &Handler{hub: hub}
}

// Upgrade gates the route so plain HTTP requests get a 426 instead of a
// confusing websocket error.
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve runs one subscriber connection until it drops. Cleanup through
// Unregister is unconditional, so an abrupt network drop leaks no membership.
func (h *Handler) Serve(sock *websocket.Conn) {
	conn := newConnection(uuid.New().String(), sock)

	h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(conn.ID())
		conn.close()
	}()

	go conn.writePump()

	log.Printf("Subscriber connected: %s", conn.ID())

	sock.SetReadDeadline(time.Now().Add(pongWait))
	sock.SetPongHandler(func(string) error {
		sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Subscriber %s read error: %v", conn.ID(), err)
			}
			break
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			log.Printf("Subscriber %s sent malformed command: %v", conn.ID(), err)
			continue
		}

		h.handleCommand(conn.ID(), cmd)
	}

	log.Printf("Subscriber disconnected: %s", conn.ID())
}

func (h *Handler) handleCommand(connID string, cmd clientCommand) {
	switch cmd.Action {
	case actionJoinCanteen:
		if cmd.CanteenID == uuid.Nil {
			log.Printf("Subscriber %s join without canteen id", connID)
			return
		}
		h.hub.Join(connID, cmd.CanteenID)

	case actionLeaveCanteen:
		if cmd.CanteenID == uuid.Nil {
			return
		}
		h.hub.Leave(connID, cmd.CanteenID)

	case actionJoinGlobal:
		h.hub.JoinGlobal(connID)

	case actionLeaveGlobal:
		h.hub.LeaveGlobal(connID)

	default:
		log.Printf("Subscriber %s sent unknown action: %s", connID, cmd.Action)
	}
}
