package service

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
)

// MenuStore is the durable source of truth for menu items. Implementations
// must give read-after-write consistency for a single writer.
type MenuStore interface {
	CreateMenuItem(item *domain.MenuItem) error
	ReadMenuItem(itemID uuid.UUID) (*domain.MenuItem, error)
	WriteMenuItem(item *domain.MenuItem) error
	DeleteMenuItem(itemID uuid.UUID) error
	ReadAllMenuItems(canteenID uuid.UUID) ([]*domain.MenuItem, error)
}

// EventPublisher receives envelopes after the backing mutation committed.
type EventPublisher interface {
	Publish(envelope events.Envelope)
}

// InventoryService is the only writer of menu item state. Every mutation is
// committed to the store first and broadcast after; per-item locks serialize
// concurrent mutations so a decrement can never drive quantity negative.
type InventoryService struct {
	store     MenuStore
	publisher EventPublisher
	threshold int

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewInventoryService(store MenuStore, publisher EventPublisher, lowStockThreshold int) *InventoryService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = domain.DefaultLowStockThreshold
	}
	return &InventoryService{
		store:     store,
		publisher: publisher,
		threshold: lowStockThreshold,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *InventoryService) lockItem(itemID uuid.UUID) func() {
	s.mu.Lock()
	lock, ok := s.locks[itemID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[itemID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// dropLock forgets the per-item mutex for a removed item. Any goroutine
// still waiting on the old mutex just proceeds into an ErrItemNotFound read.
func (s *InventoryService) dropLock(itemID uuid.UUID) {
	s.mu.Lock()
	delete(s.locks, itemID)
	s.mu.Unlock()
}

// lockItems acquires locks in sorted id order so overlapping bulk operations
// cannot deadlock against each other or against single-item mutations. Ids
// are deduplicated: the same non-reentrant mutex must never be taken twice.
func (s *InventoryService) lockItems(itemIDs []uuid.UUID) func() {
	seen := make(map[uuid.UUID]struct{}, len(itemIDs))
	sorted := make([]uuid.UUID, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		if _, dup := seen[itemID]; dup {
			continue
		}
		seen[itemID] = struct{}{}
		sorted = append(sorted, itemID)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	unlocks := make([]func(), 0, len(sorted))
	for _, itemID := range sorted {
		unlocks = append(unlocks, s.lockItem(itemID))
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// SetQuantityDelta adjusts available quantity by delta. A delta that would
// take quantity below zero is rejected with ErrInsufficientStock and no event
// is published. Driving quantity to zero flips is_available in the same
// commit; crossing the low-stock threshold emits a low-stock-alert after the
// item-updated event, both derived from the one commit.
func (s *InventoryService) SetQuantityDelta(itemID uuid.UUID, delta int) (*domain.MenuItem, error) {
	unlock := s.lockItem(itemID)
	defer unlock()

	item, err := s.store.ReadMenuItem(itemID)
	if err != nil {
		return nil, err
	}

	if err := item.ApplyDelta(delta); err != nil {
		return nil, err
	}

	if err := s.store.WriteMenuItem(item); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.NewItemUpdated(item.View()))
	if item.LowStock(s.threshold) {
		s.publisher.Publish(events.NewLowStockAlert(item.View(), s.threshold))
	}

	return item, nil
}

// SetAvailability records a staff availability switch for an item.
func (s *InventoryService) SetAvailability(itemID uuid.UUID, available bool) (*domain.MenuItem, error) {
	unlock := s.lockItem(itemID)
	defer unlock()

	item, err := s.store.ReadMenuItem(itemID)
	if err != nil {
		return nil, err
	}

	item.SetAvailability(available)

	if err := s.store.WriteMenuItem(item); err != nil {
		return nil, err
	}

	s.publisher.Publish(events.NewAvailabilityChanged(item.View()))

	return item, nil
}

// CreateItem adds a new menu item to a canteen.
func (s *InventoryService) CreateItem(canteenID uuid.UUID, attrs domain.MenuItemAttrs) (*domain.MenuItem, error) {
	item := domain.NewMenuItem(canteenID, attrs)

	if err := s.store.CreateMenuItem(item); err != nil {
		return nil, err
	}

	log.Printf("Menu item created: ItemID=%s, Canteen=%s, Name=%s", item.ID, canteenID, item.Name)

	s.publisher.Publish(events.NewItemAdded(item.View()))

	return item, nil
}

// RemoveItem deletes a menu item.
func (s *InventoryService) RemoveItem(itemID uuid.UUID) error {
	unlock := s.lockItem(itemID)
	defer unlock()

	item, err := s.store.ReadMenuItem(itemID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteMenuItem(itemID); err != nil {
		return err
	}

	defer s.dropLock(itemID)

	log.Printf("Menu item removed: ItemID=%s, Name=%s", item.ID, item.Name)

	s.publisher.Publish(events.NewItemRemoved(item.View(), time.Now()))

	return nil
}

// BulkApply adjusts several items of one canteen at once. The batch is
// all-or-nothing: every delta is validated against committed state before any
// write happens, and one bulk-update envelope covers the whole batch.
func (s *InventoryService) BulkApply(canteenID uuid.UUID, deltas []domain.QuantityDelta) ([]*domain.MenuItem, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	itemIDs := make([]uuid.UUID, len(deltas))
	seen := make(map[uuid.UUID]struct{}, len(deltas))
	for i, d := range deltas {
		if _, dup := seen[d.ItemID]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateItem, d.ItemID)
		}
		seen[d.ItemID] = struct{}{}
		itemIDs[i] = d.ItemID
	}

	unlock := s.lockItems(itemIDs)
	defer unlock()

	items := make([]*domain.MenuItem, len(deltas))
	priors := make([]domain.MenuItem, len(deltas))
	for i, d := range deltas {
		item, err := s.store.ReadMenuItem(d.ItemID)
		if err != nil {
			return nil, err
		}
		if item.CanteenID != canteenID {
			return nil, domain.ErrItemNotFound
		}
		priors[i] = *item
		if err := item.ApplyDelta(d.Delta); err != nil {
			return nil, err
		}
		items[i] = item
	}

	for i, item := range items {
		if err := s.store.WriteMenuItem(item); err != nil {
			// Restore the lines already written so the batch stays
			// all-or-nothing against the durable store.
			for j := 0; j < i; j++ {
				prior := priors[j]
				if restoreErr := s.store.WriteMenuItem(&prior); restoreErr != nil {
					log.Printf("Bulk rollback error for item %s: %v", prior.ID, restoreErr)
				}
			}
			return nil, fmt.Errorf("bulk write error: %w", err)
		}
	}

	views := make([]events.MenuItemView, len(items))
	for i, item := range items {
		views[i] = item.View()
	}
	s.publisher.Publish(events.NewBulkUpdate(canteenID, views))

	for _, item := range items {
		if item.LowStock(s.threshold) {
			s.publisher.Publish(events.NewLowStockAlert(item.View(), s.threshold))
		}
	}

	return items, nil
}

// GetItem reads one item from the durable store.
func (s *InventoryService) GetItem(itemID uuid.UUID) (*domain.MenuItem, error) {
	return s.store.ReadMenuItem(itemID)
}

// GetFullMenu is the bootstrap read: committed state for a whole canteen,
// ordered, no side effects.
func (s *InventoryService) GetFullMenu(canteenID uuid.UUID) ([]*domain.MenuItem, error) {
	return s.store.ReadAllMenuItems(canteenID)
}
