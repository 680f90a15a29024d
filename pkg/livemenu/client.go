package livemenu

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
)

type State string

const (
	StateDisconnected  State = "disconnected"
	StateBootstrapping State = "bootstrapping"
	StateLive          State = "live"
)

// DefaultTouchedTTL is how long an item keeps its "recently updated"
// highlight after a merge.
const DefaultTouchedTTL = 3 * time.Second

// Fetcher is the bootstrap collaborator: a strong read of one canteen's full
// menu, safe to call repeatedly.
type Fetcher interface {
	FetchFullMenu(ctx context.Context, canteenID uuid.UUID) ([]events.MenuItemView, error)
}

// Client reconciles incoming update envelopes into a local menu snapshot.
//
// The state machine is Disconnected -> Bootstrapping -> Live, dropping back
// to Bootstrapping whenever the transport fails or a resync is requested.
// Events that arrive while a bootstrap fetch is in flight are buffered and
// replayed against the fresh snapshot, so a half-initialized snapshot is
// never visible.
type Client struct {
	canteenID  uuid.UUID
	fetcher    Fetcher
	touchedTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	state   State
	snap    *snapshot
	pending []events.Envelope
	lastErr error
}

// Option tweaks client construction.
type Option func(*Client)

// WithTouchedTTL overrides the highlight duration.
func WithTouchedTTL(ttl time.Duration) Option {
	return func(c *Client) { c.touchedTTL = ttl }
}

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(canteenID uuid.UUID, fetcher Fetcher, opts ...Option) *Client {
	c := &Client{
		canteenID:  canteenID,
		fetcher:    fetcher,
		touchedTTL: DefaultTouchedTTL,
		now:        time.Now,
		state:      StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bootstrap fetches the full menu and promotes the client to Live. On
// failure the client stays in Bootstrapping with the old snapshot (if any)
// still readable as stale data, and the call may simply be retried.
func (c *Client) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateBootstrapping
	c.mu.Unlock()

	views, err := c.fetcher.FetchFullMenu(ctx, c.canteenID)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.pending = nil
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrBootstrapFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = newSnapshot(views)
	c.lastErr = nil

	// Replay whatever arrived mid-fetch. The per-item staleness guard drops
	// anything the fetch result already supersedes.
	buffered := c.pending
	c.pending = nil
	for _, envelope := range buffered {
		c.merge(envelope)
	}

	c.state = StateLive
	return nil
}

// Apply merges one envelope into the snapshot. In Bootstrapping the envelope
// is buffered for replay; in Disconnected it is dropped, because the next
// bootstrap will recover true state anyway. Malformed envelopes never fail
// the client, they are logged and discarded.
func (c *Client) Apply(envelope events.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateDisconnected:
		return
	case StateBootstrapping:
		c.pending = append(c.pending, envelope)
		return
	}

	c.merge(envelope)
}

// merge applies the per-kind rules. Caller holds the lock.
func (c *Client) merge(envelope events.Envelope) {
	if envelope.CanteenID != c.canteenID {
		log.Printf("Dropping envelope for foreign canteen %s", envelope.CanteenID)
		return
	}

	switch envelope.Kind {
	case events.ItemUpdatedEvent:
		if envelope.ItemUpdated == nil {
			log.Printf("Dropping malformed %s envelope", envelope.Kind)
			return
		}
		p := envelope.ItemUpdated
		c.touch(c.snap.upsert(p.ItemID, envelope.UpdatedAt, func(view *events.MenuItemView) {
			view.Name = p.Name
			view.AvailableQuantity = p.AvailableQuantity
			view.IsAvailable = p.IsAvailable
			view.Category = p.Category
			view.IsVeg = p.IsVeg
		}), p.ItemID)

	case events.AvailabilityChangedEvent:
		if envelope.AvailabilityChanged == nil {
			log.Printf("Dropping malformed %s envelope", envelope.Kind)
			return
		}
		p := envelope.AvailabilityChanged
		c.touch(c.snap.upsert(p.ItemID, envelope.UpdatedAt, func(view *events.MenuItemView) {
			view.Name = p.ItemName
			view.IsAvailable = p.IsAvailable
		}), p.ItemID)

	case events.ItemAddedEvent:
		if envelope.ItemAdded == nil {
			log.Printf("Dropping malformed %s envelope", envelope.Kind)
			return
		}
		item := envelope.ItemAdded.MenuItem
		c.touch(c.snap.add(item), item.ID)

	case events.ItemRemovedEvent:
		if envelope.ItemRemoved == nil {
			log.Printf("Dropping malformed %s envelope", envelope.Kind)
			return
		}
		c.snap.remove(envelope.ItemRemoved.ItemID)

	case events.LowStockAlertEvent:
		if envelope.LowStockAlert == nil {
			log.Printf("Dropping malformed %s envelope", envelope.Kind)
			return
		}
		p := envelope.LowStockAlert
		c.touch(c.snap.upsert(p.ItemID, envelope.UpdatedAt, func(view *events.MenuItemView) {
			view.Name = p.ItemName
			view.AvailableQuantity = p.AvailableQuantity
		}), p.ItemID)

	case events.BulkUpdateEvent:
		if envelope.BulkUpdate == nil {
			log.Printf("Dropping malformed %s envelope", envelope.Kind)
			return
		}
		for _, line := range envelope.BulkUpdate.Items {
			p := line
			c.touch(c.snap.upsert(p.ItemID, envelope.UpdatedAt, func(view *events.MenuItemView) {
				view.Name = p.Name
				view.AvailableQuantity = p.AvailableQuantity
				view.IsAvailable = p.IsAvailable
			}), p.ItemID)
		}

	case events.CanteenStatusEvent:
		if envelope.CanteenStatus == nil {
			log.Printf("Dropping malformed %s envelope", envelope.Kind)
			return
		}
		if envelope.UpdatedAt.After(c.snap.statusAt) {
			c.snap.canteenName = envelope.CanteenStatus.CanteenName
			c.snap.canteenOpen = envelope.CanteenStatus.IsOpen
			c.snap.statusAt = envelope.UpdatedAt
		}

	default:
		log.Printf("Dropping envelope of unknown kind: %s", envelope.Kind)
	}
}

func (c *Client) touch(merged bool, itemID uuid.UUID) {
	if !merged {
		return
	}
	if e, ok := c.snap.items[itemID]; ok {
		e.touchedUntil = c.now().Add(c.touchedTTL)
	}
}

// OnTransportError drops the client back to Bootstrapping. The snapshot is
// kept readable so the UI can show flagged stale data instead of a blank
// menu, but no further events are merged until the next Bootstrap succeeds.
func (c *Client) OnTransportError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateBootstrapping
	c.lastErr = fmt.Errorf("%w: %v", ErrResyncRequired, err)
	c.pending = nil
}

// Disconnect resets the client to its initial state.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateDisconnected
	c.pending = nil
}

// State reports the connection-health state for the live/stale indicator.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Live reports whether incremental events are currently trusted.
func (c *Client) Live() bool {
	return c.State() == StateLive
}

// Err returns the most recent bootstrap or transport error, nil when healthy.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Items returns the current snapshot, sorted, with touched markers evaluated
// against the clock at call time. Returns nil before the first bootstrap.
func (c *Client) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil {
		return nil
	}
	return c.snap.list(c.now())
}

// Item looks up a single entry by id.
func (c *Client) Item(itemID uuid.UUID) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil {
		return Item{}, false
	}
	e, ok := c.snap.items[itemID]
	if !ok {
		return Item{}, false
	}
	return Item{
		MenuItemView: e.view,
		Touched:      e.touchedUntil.After(c.now()),
	}, true
}

// CanteenOpen reports the last observed canteen status.
func (c *Client) CanteenOpen() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil {
		return "", false
	}
	return c.snap.canteenName, c.snap.canteenOpen
}
