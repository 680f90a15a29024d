package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campus-eats/canteen-platform/internal/domain"
	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryMenuStore keeps items in a map guarded by a mutex so concurrent
// service calls behave like they would against a real database.
type memoryMenuStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.MenuItem
}

func newMemoryMenuStore() *memoryMenuStore {
	return &memoryMenuStore{items: make(map[uuid.UUID]domain.MenuItem)}
}

func (s *memoryMenuStore) CreateMenuItem(item *domain.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = *item
	return nil
}

func (s *memoryMenuStore) ReadMenuItem(itemID uuid.UUID) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	copied := item
	return &copied, nil
}

func (s *memoryMenuStore) WriteMenuItem(item *domain.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	s.items[item.ID] = *item
	return nil
}

func (s *memoryMenuStore) DeleteMenuItem(itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[itemID]; !ok {
		return domain.ErrItemNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *memoryMenuStore) ReadAllMenuItems(canteenID uuid.UUID) ([]*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.MenuItem
	for _, item := range s.items {
		if item.CanteenID == canteenID {
			copied := item
			out = append(out, &copied)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (p *recordingPublisher) Publish(envelope events.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, envelope)
}

func (p *recordingPublisher) published() []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Envelope, len(p.envelopes))
	copy(out, p.envelopes)
	return out
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]events.Kind, len(p.envelopes))
	for i, e := range p.envelopes {
		kinds[i] = e.Kind
	}
	return kinds
}

func seedItem(t *testing.T, store *memoryMenuStore, canteenID uuid.UUID, quantity int) *domain.MenuItem {
	t.Helper()
	item := domain.NewMenuItem(canteenID, domain.MenuItemAttrs{
		Name:              "Masala Dosa",
		Category:          "South Indian",
		IsVeg:             true,
		Price:             60,
		AvailableQuantity: quantity,
	})
	require.NoError(t, store.CreateMenuItem(item))
	return item
}

func TestSetQuantityDeltaDecrement(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	canteenID := uuid.New()
	item := seedItem(t, store, canteenID, 10)

	updated, err := svc.SetQuantityDelta(item.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.AvailableQuantity)
	assert.True(t, updated.IsAvailable)

	envelopes := publisher.published()
	require.Len(t, envelopes, 1)
	assert.Equal(t, events.ItemUpdatedEvent, envelopes[0].Kind)
	assert.Equal(t, canteenID, envelopes[0].CanteenID)
	assert.Equal(t, 7, envelopes[0].ItemUpdated.AvailableQuantity)
}

func TestSetQuantityDeltaInsufficientStock(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	item := seedItem(t, store, uuid.New(), 2)

	_, err := svc.SetQuantityDelta(item.ID, -5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// The rejection leaves committed state untouched and publishes nothing.
	stored, err := store.ReadMenuItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.AvailableQuantity)
	assert.Empty(t, publisher.published())
}

func TestSetQuantityDeltaLowStockAlertFollowsUpdate(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	item := seedItem(t, store, uuid.New(), 6)

	_, err := svc.SetQuantityDelta(item.ID, -2)
	require.NoError(t, err)

	kinds := publisher.kinds()
	require.Equal(t, []events.Kind{events.ItemUpdatedEvent, events.LowStockAlertEvent}, kinds)

	envelopes := publisher.published()
	assert.Equal(t, 4, envelopes[0].ItemUpdated.AvailableQuantity)
	assert.Equal(t, 4, envelopes[1].LowStockAlert.AvailableQuantity)
	assert.Equal(t, 5, envelopes[1].LowStockAlert.Threshold)
}

func TestSetQuantityDeltaToZeroFlipsAvailability(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	item := seedItem(t, store, uuid.New(), 1)

	updated, err := svc.SetQuantityDelta(item.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableQuantity)
	assert.False(t, updated.IsAvailable)

	// Both facts ride the same envelope; subscribers never see qty 0 with
	// is_available still true.
	envelopes := publisher.published()
	require.NotEmpty(t, envelopes)
	assert.Equal(t, 0, envelopes[0].ItemUpdated.AvailableQuantity)
	assert.False(t, envelopes[0].ItemUpdated.IsAvailable)
}

func TestSetQuantityDeltaConcurrentDecrements(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 0)

	item := seedItem(t, store, uuid.New(), 3)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SetQuantityDelta(item.ID, -2)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failures, successes int
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			failures++
		} else {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)

	stored, err := store.ReadMenuItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AvailableQuantity)
}

func TestSetQuantityDeltaNeverNegative(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 0)

	item := seedItem(t, store, uuid.New(), 5)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.SetQuantityDelta(item.ID, -1)
		}()
	}
	wg.Wait()

	stored, err := store.ReadMenuItem(item.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stored.AvailableQuantity, 0)
	assert.Equal(t, 0, stored.AvailableQuantity)
}

func TestSetAvailability(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	item := seedItem(t, store, uuid.New(), 10)

	updated, err := svc.SetAvailability(item.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)

	envelopes := publisher.published()
	require.Len(t, envelopes, 1)
	assert.Equal(t, events.AvailabilityChangedEvent, envelopes[0].Kind)
	assert.False(t, envelopes[0].AvailabilityChanged.IsAvailable)

	// Re-enabling an item that still has stock restores availability.
	updated, err = svc.SetAvailability(item.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsAvailable)
}

func TestSetAvailabilityZeroStockStaysUnavailable(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	item := seedItem(t, store, uuid.New(), 0)

	updated, err := svc.SetAvailability(item.ID, true)
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)
}

func TestCreateAndRemoveItem(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	canteenID := uuid.New()
	item, err := svc.CreateItem(canteenID, domain.MenuItemAttrs{
		Name:              "Filter Coffee",
		Category:          "Beverages",
		IsVeg:             true,
		Price:             20,
		AvailableQuantity: 50,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(item.ID))

	kinds := publisher.kinds()
	assert.Equal(t, []events.Kind{events.ItemAddedEvent, events.ItemRemovedEvent}, kinds)

	envelopes := publisher.published()
	assert.Equal(t, item.ID, envelopes[1].ItemRemoved.ItemID)
	assert.Equal(t, "Filter Coffee", envelopes[1].ItemRemoved.ItemName)

	_, err = svc.GetItem(item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestBulkApplyAllOrNothing(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 0)

	canteenID := uuid.New()
	first := seedItem(t, store, canteenID, 10)
	second := seedItem(t, store, canteenID, 1)

	_, err := svc.BulkApply(canteenID, []domain.QuantityDelta{
		{ItemID: first.ID, Delta: -5},
		{ItemID: second.ID, Delta: -3},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Nothing committed: the first line's valid delta was rolled into the
	// rejection of the batch.
	stored, err := store.ReadMenuItem(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.AvailableQuantity)
	assert.Empty(t, publisher.published())
}

func TestBulkApplySingleEnvelope(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 2)

	canteenID := uuid.New()
	first := seedItem(t, store, canteenID, 10)
	second := seedItem(t, store, canteenID, 4)

	items, err := svc.BulkApply(canteenID, []domain.QuantityDelta{
		{ItemID: first.ID, Delta: -2},
		{ItemID: second.ID, Delta: -3},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	kinds := publisher.kinds()
	require.Equal(t, []events.Kind{events.BulkUpdateEvent, events.LowStockAlertEvent}, kinds)

	envelopes := publisher.published()
	require.Len(t, envelopes[0].BulkUpdate.Items, 2)
	assert.Equal(t, 8, envelopes[0].BulkUpdate.Items[0].AvailableQuantity)
	assert.Equal(t, 1, envelopes[0].BulkUpdate.Items[1].AvailableQuantity)
	assert.Equal(t, second.ID, envelopes[1].LowStockAlert.ItemID)
}

func TestBulkApplyRejectsDuplicateItemIDs(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	canteenID := uuid.New()
	item := seedItem(t, store, canteenID, 10)

	// A batch naming the same item twice must be rejected promptly, not
	// wedge the item's lock.
	done := make(chan error, 1)
	go func() {
		_, err := svc.BulkApply(canteenID, []domain.QuantityDelta{
			{ItemID: item.ID, Delta: -1},
			{ItemID: item.ID, Delta: -1},
		})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrDuplicateItem)
	case <-time.After(2 * time.Second):
		t.Fatal("BulkApply did not return for a duplicate-id batch")
	}

	stored, err := store.ReadMenuItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.AvailableQuantity)
	assert.Empty(t, publisher.published())

	// The item stays mutable afterwards.
	updated, err := svc.SetQuantityDelta(item.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.AvailableQuantity)
}

// flakyMenuStore fails the Nth write to exercise the bulk rollback path.
type flakyMenuStore struct {
	*memoryMenuStore
	failOn int
	writes int
}

func (s *flakyMenuStore) WriteMenuItem(item *domain.MenuItem) error {
	s.writes++
	if s.writes == s.failOn {
		return errors.New("write failed")
	}
	return s.memoryMenuStore.WriteMenuItem(item)
}

func TestBulkApplyPartialWriteFailureRollsBack(t *testing.T) {
	store := &flakyMenuStore{memoryMenuStore: newMemoryMenuStore(), failOn: 2}
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	canteenID := uuid.New()
	first := seedItem(t, store.memoryMenuStore, canteenID, 10)
	second := seedItem(t, store.memoryMenuStore, canteenID, 8)

	_, err := svc.BulkApply(canteenID, []domain.QuantityDelta{
		{ItemID: first.ID, Delta: -3},
		{ItemID: second.ID, Delta: -3},
	})
	require.Error(t, err)

	// The first line's committed write was restored when the second failed.
	storedFirst, err := store.ReadMenuItem(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, storedFirst.AvailableQuantity)

	storedSecond, err := store.ReadMenuItem(second.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, storedSecond.AvailableQuantity)

	assert.Empty(t, publisher.published())
}

func TestRemoveItemDropsItsLock(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	item := seedItem(t, store, uuid.New(), 10)

	_, err := svc.SetQuantityDelta(item.ID, -1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(item.ID))

	svc.mu.Lock()
	_, held := svc.locks[item.ID]
	svc.mu.Unlock()
	assert.False(t, held)
}

func TestBulkApplyRejectsForeignItem(t *testing.T) {
	store := newMemoryMenuStore()
	publisher := &recordingPublisher{}
	svc := NewInventoryService(store, publisher, 5)

	canteenID := uuid.New()
	foreign := seedItem(t, store, uuid.New(), 10)

	_, err := svc.BulkApply(canteenID, []domain.QuantityDelta{
		{ItemID: foreign.ID, Delta: -1},
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.Empty(t, publisher.published())
}
