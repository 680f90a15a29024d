package domain

import "errors"

var (
	// ErrInsufficientStock rejects a decrement that would drive quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrItemNotFound rejects an operation against a nonexistent item.
	ErrItemNotFound = errors.New("menu item not found")

	// ErrCanteenNotFound rejects an operation against a nonexistent canteen.
	ErrCanteenNotFound = errors.New("canteen not found")

	// ErrOrderNotFound rejects an operation against a nonexistent order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrBroadcastUnavailable signals the relay transport cannot deliver.
	// Mutations stand regardless; only freshness degrades.
	ErrBroadcastUnavailable = errors.New("broadcast transport unavailable")

	// ErrDuplicateItem rejects a bulk batch naming the same item twice.
	ErrDuplicateItem = errors.New("duplicate item in batch")
)
