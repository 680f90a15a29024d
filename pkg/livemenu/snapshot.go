package livemenu

import (
	"sort"
	"time"

	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
)

// Item is one entry of the client's menu snapshot: the last-known view plus
// the transient "recently touched" marker driven by incoming events.
type Item struct {
	events.MenuItemView

	// Touched is true while the item's update highlight has not expired.
	Touched bool `json:"touched"`
}

type entry struct {
	view         events.MenuItemView
	touchedUntil time.Time
}

// snapshot is the disposable, eventually consistent projection of one
// canteen's menu. It never writes back; it is rebuilt wholesale on resync.
type snapshot struct {
	items map[uuid.UUID]*entry

	// tombstones record removed item ids. Removal is terminal: no later
	// update resurrects the item, only an explicit item-added does.
	tombstones map[uuid.UUID]struct{}

	canteenName string
	canteenOpen bool
	statusAt    time.Time
}

func newSnapshot(views []events.MenuItemView) *snapshot {
	s := &snapshot{
		items:      make(map[uuid.UUID]*entry, len(views)),
		tombstones: make(map[uuid.UUID]struct{}),
	}
	for _, view := range views {
		s.items[view.ID] = &entry{view: view}
	}
	return s
}

// upsert applies a field mutation for one item. Returns false when the event
// is stale or duplicate, or the item is tombstoned; a true return means the
// caller should set the touched marker.
func (s *snapshot) upsert(itemID uuid.UUID, at time.Time, mutate func(view *events.MenuItemView)) bool {
	if _, removed := s.tombstones[itemID]; removed {
		return false
	}

	e, ok := s.items[itemID]
	if !ok {
		e = &entry{}
		e.view.ID = itemID
		s.items[itemID] = e
	} else if !at.After(e.view.UpdatedAt) {
		// Duplicate or out-of-order delivery. Equal timestamps count as
		// duplicates so a replayed event has no visible effect.
		return false
	}

	mutate(&e.view)
	e.view.UpdatedAt = at
	return true
}

// add inserts a full item view and clears any tombstone for its id.
func (s *snapshot) add(view events.MenuItemView) bool {
	delete(s.tombstones, view.ID)

	if e, ok := s.items[view.ID]; ok && !view.UpdatedAt.After(e.view.UpdatedAt) {
		return false
	}

	s.items[view.ID] = &entry{view: view}
	return true
}

// remove deletes an item unconditionally. Removal always wins, even against
// an update with a newer timestamp still in flight.
func (s *snapshot) remove(itemID uuid.UUID) {
	delete(s.items, itemID)
	s.tombstones[itemID] = struct{}{}
}

// list returns the items sorted by category then name, evaluating touched
// markers against the supplied clock.
func (s *snapshot) list(now time.Time) []Item {
	items := make([]Item, 0, len(s.items))
	for _, e := range s.items {
		items = append(items, Item{
			MenuItemView: e.view,
			Touched:      e.touchedUntil.After(now),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})
	return items
}
