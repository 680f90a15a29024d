package broadcast

import (
	"log"

	"github.com/google/uuid"
)

// Connection is the transport-facing side of the registry. Deliver must not
// block; slow consumers are the transport's problem, not the hub's.
type Connection interface {
	ID() string
	Deliver(frame []byte)
}

type membership struct {
	connID    string
	canteenID uuid.UUID
}

type roomFrame struct {
	canteenID uuid.UUID
	frame     []byte
}

// Hub tracks live connections and their canteen room memberships. All state
// lives inside the run loop, so no operation needs a lock. Rooms are created
// on first join and dropped when the last member leaves.
type Hub struct {
	conns  map[string]Connection
	rooms  map[uuid.UUID]map[string]Connection
	global map[string]Connection

	register     chan Connection
	unregister   chan string
	join         chan membership
	leave        chan membership
	joinGlobal   chan string
	leaveGlobal  chan string
	roomFrames   chan roomFrame
	globalFrames chan []byte
	inspect      chan func(*Hub)
	done         chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns:        make(map[string]Connection),
		rooms:        make(map[uuid.UUID]map[string]Connection),
		global:       make(map[string]Connection),
		register:     make(chan Connection),
		unregister:   make(chan string),
		join:         make(chan membership),
		leave:        make(chan membership),
		joinGlobal:   make(chan string),
		leaveGlobal:  make(chan string),
		roomFrames:   make(chan roomFrame, 64),
		globalFrames: make(chan []byte, 64),
		inspect:      make(chan func(*Hub)),
		done:         make(chan struct{}),
	}
}

// Run processes registry operations until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.conns[conn.ID()] = conn

		case connID := <-h.unregister:
			h.dropConnection(connID)

		case m := <-h.join:
			h.handleJoin(m)

		case m := <-h.leave:
			h.handleLeave(m)

		case connID := <-h.joinGlobal:
			if conn, ok := h.conns[connID]; ok {
				h.global[connID] = conn
			}

		case connID := <-h.leaveGlobal:
			delete(h.global, connID)

		case rf := <-h.roomFrames:
			for _, conn := range h.rooms[rf.canteenID] {
				conn.Deliver(rf.frame)
			}

		case frame := <-h.globalFrames:
			for _, conn := range h.global {
				conn.Deliver(frame)
			}

		case fn := <-h.inspect:
			fn(h)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) handleJoin(m membership) {
	conn, ok := h.conns[m.connID]
	if !ok {
		log.Printf("Join ignored for unknown connection: %s", m.connID)
		return
	}

	room, ok := h.rooms[m.canteenID]
	if !ok {
		room = make(map[string]Connection)
		h.rooms[m.canteenID] = room
	}
	room[m.connID] = conn
}

func (h *Hub) handleLeave(m membership) {
	room, ok := h.rooms[m.canteenID]
	if !ok {
		return
	}
	delete(room, m.connID)
	if len(room) == 0 {
		delete(h.rooms, m.canteenID)
	}
}

// dropConnection is the disconnect path: the connection leaves every room it
// belonged to, cleanly or not.
func (h *Hub) dropConnection(connID string) {
	delete(h.conns, connID)
	delete(h.global, connID)
	for canteenID, room := range h.rooms {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, canteenID)
		}
	}
}

func (h *Hub) Register(conn Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister removes the connection from the registry and all rooms. Safe to
// call for ids that were never registered.
func (h *Hub) Unregister(connID string) {
	select {
	case h.unregister <- connID:
	case <-h.done:
	}
}

// Join subscribes a connection to a canteen room. Joining a room the
// connection is already in is a no-op.
func (h *Hub) Join(connID string, canteenID uuid.UUID) {
	select {
	case h.join <- membership{connID: connID, canteenID: canteenID}:
	case <-h.done:
	}
}

// Leave unsubscribes a connection from a canteen room. Leaving a room the
// connection is not in is a no-op.
func (h *Hub) Leave(connID string, canteenID uuid.UUID) {
	select {
	case h.leave <- membership{connID: connID, canteenID: canteenID}:
	case <-h.done:
	}
}

func (h *Hub) JoinGlobal(connID string) {
	select {
	case h.joinGlobal <- connID:
	case <-h.done:
	}
}

func (h *Hub) LeaveGlobal(connID string) {
	select {
	case h.leaveGlobal <- connID:
	case <-h.done:
	}
}

// BroadcastRoom delivers a frame to every member of the canteen's room.
// Broadcasting to an empty or nonexistent room is a no-op.
func (h *Hub) BroadcastRoom(canteenID uuid.UUID, frame []byte) {
	select {
	case h.roomFrames <- roomFrame{canteenID: canteenID, frame: frame}:
	case <-h.done:
	}
}

// BroadcastGlobal delivers a frame to every connection subscribed to the
// unscoped feed.
func (h *Hub) BroadcastGlobal(frame []byte) {
	select {
	case h.globalFrames <- frame:
	case <-h.done:
	}
}

// RoomMembers reports the connection ids currently in a room. The read runs
// inside the loop so it observes a consistent snapshot.
func (h *Hub) RoomMembers(canteenID uuid.UUID) []string {
	reply := make(chan []string, 1)
	fn := func(h *Hub) {
		var members []string
		for connID := range h.rooms[canteenID] {
			members = append(members, connID)
		}
		reply <- members
	}

	select {
	case h.inspect <- fn:
		return <-reply
	case <-h.done:
		return nil
	}
}

// ConnectionCount reports the number of registered connections.
func (h *Hub) ConnectionCount() int {
	reply := make(chan int, 1)
	fn := func(h *Hub) {
		reply <- len(h.conns)
	}

	select {
	case h.inspect <- fn:
		return <-reply
	case <-h.done:
		return 0
	}
}
