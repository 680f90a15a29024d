package livemenu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campus-eats/canteen-platform/pkg/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	views []events.MenuItemView
	err   error

	// gate, when set, blocks the fetch until released. Used to apply events
	// while a bootstrap is in flight.
	gate chan struct{}

	calls int
}

func (f *fakeFetcher) FetchFullMenu(ctx context.Context, canteenID uuid.UUID) ([]events.MenuItemView, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]events.MenuItemView, len(f.views))
	copy(out, f.views)
	return out, nil
}

func (f *fakeFetcher) set(views []events.MenuItemView, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = views
	f.err = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func view(canteenID uuid.UUID, name string, qty int, at time.Time) events.MenuItemView {
	return events.MenuItemView{
		ID:                uuid.New(),
		CanteenID:         canteenID,
		Name:              name,
		Category:          "Snacks",
		Price:             30,
		AvailableQuantity: qty,
		IsAvailable:       qty > 0,
		UpdatedAt:         at,
	}
}

func TestBootstrapPromotesToLive(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{
		view(canteenID, "Samosa", 12, base),
		view(canteenID, "Vada Pav", 8, base),
	}, nil)

	client := NewClient(canteenID, fetcher)
	require.Equal(t, StateDisconnected, client.State())

	require.NoError(t, client.Bootstrap(context.Background()))
	assert.Equal(t, StateLive, client.State())
	assert.NoError(t, client.Err())

	items := client.Items()
	require.Len(t, items, 2)
	// Sorted by category then name.
	assert.Equal(t, "Samosa", items[0].Name)
	assert.Equal(t, "Vada Pav", items[1].Name)
}

func TestBootstrapFailureIsRetryable(t *testing.T) {
	canteenID := uuid.New()
	fetcher := &fakeFetcher{}
	fetcher.set(nil, errors.New("connection refused"))

	client := NewClient(canteenID, fetcher)

	err := client.Bootstrap(context.Background())
	assert.ErrorIs(t, err, ErrBootstrapFailed)
	assert.Equal(t, StateBootstrapping, client.State())
	assert.Error(t, client.Err())
	assert.Nil(t, client.Items())

	fetcher.set([]events.MenuItemView{view(canteenID, "Samosa", 12, time.Now())}, nil)
	require.NoError(t, client.Bootstrap(context.Background()))
	assert.Equal(t, StateLive, client.State())
	assert.Len(t, client.Items(), 1)
}

func TestApplyUpdatesItem(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{item}, nil)
	client := NewClient(canteenID, fetcher)
	require.NoError(t, client.Bootstrap(context.Background()))

	item.AvailableQuantity = 7
	item.UpdatedAt = base.Add(time.Second)
	client.Apply(events.NewItemUpdated(item))

	got, ok := client.Item(item.ID)
	require.True(t, ok)
	assert.Equal(t, 7, got.AvailableQuantity)
	assert.True(t, got.Touched)
}

func TestApplyDropsStaleEvent(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{item}, nil)
	client := NewClient(canteenID, fetcher)
	require.NoError(t, client.Bootstrap(context.Background()))

	stale := item
	stale.AvailableQuantity = 2
	stale.UpdatedAt = base.Add(-time.Minute)
	client.Apply(events.NewItemUpdated(stale))

	got, ok := client.Item(item.ID)
	require.True(t, ok)
	assert.Equal(t, 12, got.AvailableQuantity)
	assert.False(t, got.Touched)
}

func TestApplyEqualTimestampIsDuplicate(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{item}, nil)
	clock := &fakeClock{now: base}
	client := NewClient(canteenID, fetcher, WithClock(clock.Now), WithTouchedTTL(time.Second))
	require.NoError(t, client.Bootstrap(context.Background()))

	item.AvailableQuantity = 7
	item.UpdatedAt = base.Add(time.Second)
	envelope := events.NewItemUpdated(item)

	client.Apply(envelope)
	got, _ := client.Item(item.ID)
	assert.True(t, got.Touched)

	// Let the highlight expire, then replay the identical envelope. A
	// duplicate must not re-touch the item.
	clock.Advance(2 * time.Second)
	client.Apply(envelope)

	got, ok := client.Item(item.ID)
	require.True(t, ok)
	assert.Equal(t, 7, got.AvailableQuantity)
	assert.False(t, got.Touched)
}

func TestRemovalWins(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{item}, nil)
	client := NewClient(canteenID, fetcher)
	require.NoError(t, client.Bootstrap(context.Background()))

	client.Apply(events.NewItemRemoved(item, base.Add(time.Second)))
	_, ok := client.Item(item.ID)
	assert.False(t, ok)

	// An update newer than the removal must not resurrect the item.
	revived := item
	revived.UpdatedAt = base.Add(time.Minute)
	client.Apply(events.NewItemUpdated(revived))
	_, ok = client.Item(item.ID)
	assert.False(t, ok)

	// An explicit add does bring it back.
	client.Apply(events.NewItemAdded(revived))
	got, ok := client.Item(item.ID)
	require.True(t, ok)
	assert.Equal(t, revived.AvailableQuantity, got.AvailableQuantity)
}

func TestApplyDropsForeignCanteen(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{item}, nil)
	client := NewClient(canteenID, fetcher)
	require.NoError(t, client.Bootstrap(context.Background()))

	foreign := view(uuid.New(), "Pasta", 3, base.Add(time.Second))
	client.Apply(events.NewItemAdded(foreign))

	assert.Len(t, client.Items(), 1)
}

func TestApplyWhileDisconnectedIsDropped(t *testing.T) {
	canteenID := uuid.New()
	fetcher := &fakeFetcher{}
	client := NewClient(canteenID, fetcher)

	client.Apply(events.NewItemAdded(view(canteenID, "Samosa", 12, time.Now())))

	assert.Nil(t, client.Items())
	assert.Equal(t, StateDisconnected, client.State())
}

func TestEventsDuringBootstrapAreReplayed(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{gate: make(chan struct{})}
	fetcher.set([]events.MenuItemView{item}, nil)
	client := NewClient(canteenID, fetcher)

	done := make(chan error, 1)
	go func() { done <- client.Bootstrap(context.Background()) }()

	// Wait for the bootstrap to flip the state, then deliver an update that
	// is newer than the fetch result.
	require.Eventually(t, func() bool {
		return client.State() == StateBootstrapping
	}, time.Second, time.Millisecond)

	newer := item
	newer.AvailableQuantity = 5
	newer.UpdatedAt = base.Add(time.Second)
	client.Apply(events.NewItemUpdated(newer))

	older := item
	older.AvailableQuantity = 99
	older.UpdatedAt = base.Add(-time.Second)
	client.Apply(events.NewItemUpdated(older))

	close(fetcher.gate)
	require.NoError(t, <-done)

	assert.Equal(t, StateLive, client.State())
	got, ok := client.Item(item.ID)
	require.True(t, ok)
	// The buffered newer update survived the replay, the stale one did not.
	assert.Equal(t, 5, got.AvailableQuantity)
}

func TestTransportErrorKeepsSnapshotReadable(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{item}, nil)
	client := NewClient(canteenID, fetcher)
	require.NoError(t, client.Bootstrap(context.Background()))

	client.OnTransportError(errors.New("websocket: close 1006"))

	assert.Equal(t, StateBootstrapping, client.State())
	assert.ErrorIs(t, client.Err(), ErrResyncRequired)
	// Stale but readable.
	assert.Len(t, client.Items(), 1)
}

func TestReconnectConvergesToFetchedState(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{item}, nil)
	client := NewClient(canteenID, fetcher)
	require.NoError(t, client.Bootstrap(context.Background()))

	client.OnTransportError(errors.New("connection reset"))

	// The authoritative state moved on while we were away.
	refreshed := item
	refreshed.AvailableQuantity = 3
	refreshed.UpdatedAt = base.Add(time.Minute)
	fetcher.set([]events.MenuItemView{refreshed}, nil)

	require.NoError(t, client.Bootstrap(context.Background()))
	assert.Equal(t, StateLive, client.State())
	assert.NoError(t, client.Err())

	got, ok := client.Item(item.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.AvailableQuantity)
}

func TestTouchedMarkerExpires(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	item := view(canteenID, "Samosa", 12, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{item}, nil)
	clock := &fakeClock{now: base}
	client := NewClient(canteenID, fetcher, WithClock(clock.Now), WithTouchedTTL(3*time.Second))
	require.NoError(t, client.Bootstrap(context.Background()))

	item.AvailableQuantity = 7
	item.UpdatedAt = base.Add(time.Second)
	client.Apply(events.NewItemUpdated(item))

	got, _ := client.Item(item.ID)
	assert.True(t, got.Touched)

	clock.Advance(2 * time.Second)
	got, _ = client.Item(item.ID)
	assert.True(t, got.Touched)

	clock.Advance(2 * time.Second)
	got, _ = client.Item(item.ID)
	assert.False(t, got.Touched)
}

func TestCanteenStatusIsTimestampGuarded(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()

	fetcher := &fakeFetcher{}
	fetcher.set(nil, nil)
	client := NewClient(canteenID, fetcher)
	require.NoError(t, client.Bootstrap(context.Background()))

	client.Apply(events.NewCanteenStatus(canteenID, "North Mess", false, base.Add(time.Minute)))
	name, open := client.CanteenOpen()
	assert.Equal(t, "North Mess", name)
	assert.False(t, open)

	// A stale status flip loses against the newer one already applied.
	client.Apply(events.NewCanteenStatus(canteenID, "North Mess", true, base))
	_, open = client.CanteenOpen()
	assert.False(t, open)
}

func TestBulkUpdateMergesEveryLine(t *testing.T) {
	canteenID := uuid.New()
	base := time.Now()
	first := view(canteenID, "Samosa", 12, base)
	second := view(canteenID, "Vada Pav", 8, base)

	fetcher := &fakeFetcher{}
	fetcher.set([]events.MenuItemView{first, second}, nil)
	client := NewClient(canteenID, fetcher)
	require.NoError(t, client.Bootstrap(context.Background()))

	first.AvailableQuantity = 10
	first.UpdatedAt = base.Add(time.Second)
	second.AvailableQuantity = 0
	second.IsAvailable = false
	second.UpdatedAt = base.Add(time.Second)
	client.Apply(events.NewBulkUpdate(canteenID, []events.MenuItemView{first, second}))

	gotFirst, _ := client.Item(first.ID)
	gotSecond, _ := client.Item(second.ID)
	assert.Equal(t, 10, gotFirst.AvailableQuantity)
	assert.Equal(t, 0, gotSecond.AvailableQuantity)
	assert.False(t, gotSecond.IsAvailable)
}
