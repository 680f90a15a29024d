package broadcast

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConn struct {
	id     string
	frames chan []byte
}

func newTestConn(id string) *testConn {
	return &testConn{id: id, frames: make(chan []byte, 16)}
}

func (c *testConn) ID() string { return c.id }

func (c *testConn) Deliver(frame []byte) {
	select {
	case c.frames <- frame:
	default:
	}
}

func (c *testConn) expectFrame(t *testing.T) []byte {
	t.Helper()
	select {
	case frame := <-c.frames:
		return frame
	case <-time.After(time.Second):
		t.Fatal("expected a frame, got none")
		return nil
	}
}

func (c *testConn) expectNoFrame(t *testing.T) {
	t.Helper()
	select {
	case frame := <-c.frames:
		t.Fatalf("expected no frame, got %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHubRoomIsolation(t *testing.T) {
	hub := startHub(t)

	canteenA := uuid.New()
	canteenB := uuid.New()

	connA := newTestConn("conn-a")
	connB := newTestConn("conn-b")
	hub.Register(connA)
	hub.Register(connB)
	hub.Join(connA.id, canteenA)
	hub.Join(connB.id, canteenB)

	hub.BroadcastRoom(canteenA, []byte(`{"event":"menu-item-updated"}`))

	assert.Equal(t, []byte(`{"event":"menu-item-updated"}`), connA.expectFrame(t))
	connB.expectNoFrame(t)
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := startHub(t)

	canteenID := uuid.New()
	conn := newTestConn("conn-1")
	hub.Register(conn)
	hub.Join(conn.id, canteenID)
	hub.Join(conn.id, canteenID)

	hub.BroadcastRoom(canteenID, []byte("frame"))

	conn.expectFrame(t)
	// A double join must not produce a second delivery.
	conn.expectNoFrame(t)

	members := hub.RoomMembers(canteenID)
	assert.Equal(t, []string{"conn-1"}, members)
}

func TestHubLeaveUnknownRoomIsNoop(t *testing.T) {
	hub := startHub(t)

	conn := newTestConn("conn-1")
	hub.Register(conn)
	hub.Leave(conn.id, uuid.New())

	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHubJoinBeforeRegisterIsIgnored(t *testing.T) {
	hub := startHub(t)

	canteenID := uuid.New()
	hub.Join("ghost", canteenID)

	assert.Empty(t, hub.RoomMembers(canteenID))
}

func TestHubUnregisterLeavesEveryRoom(t *testing.T) {
	hub := startHub(t)

	canteenA := uuid.New()
	canteenB := uuid.New()

	conn := newTestConn("conn-1")
	hub.Register(conn)
	hub.Join(conn.id, canteenA)
	hub.Join(conn.id, canteenB)
	hub.JoinGlobal(conn.id)

	hub.Unregister(conn.id)

	assert.Empty(t, hub.RoomMembers(canteenA))
	assert.Empty(t, hub.RoomMembers(canteenB))
	assert.Equal(t, 0, hub.ConnectionCount())

	hub.BroadcastGlobal([]byte("frame"))
	conn.expectNoFrame(t)
}

func TestHubGlobalFeedIsOptIn(t *testing.T) {
	hub := startHub(t)

	subscribed := newTestConn("subscribed")
	bystander := newTestConn("bystander")
	hub.Register(subscribed)
	hub.Register(bystander)
	hub.JoinGlobal(subscribed.id)

	hub.BroadcastGlobal([]byte("frame"))

	subscribed.expectFrame(t)
	bystander.expectNoFrame(t)

	hub.LeaveGlobal(subscribed.id)
	hub.BroadcastGlobal([]byte("frame"))
	subscribed.expectNoFrame(t)
}

func TestHubBroadcastEmptyRoom(t *testing.T) {
	hub := startHub(t)

	// Nothing to deliver to, nothing to block on.
	hub.BroadcastRoom(uuid.New(), []byte("frame"))

	require.Equal(t, 0, hub.ConnectionCount())
}
