package orderbook

import "errors"

var (
	// ErrEmptyKey is returned when the empty price sentinel is passed to a
	// tree operation that requires a real key.
	ErrEmptyKey = errors.New("orderbook: empty price key")

	// ErrDuplicateKey is returned when inserting a price that is already
	// indexed.
	ErrDuplicateKey = errors.New("orderbook: price already indexed")

	// ErrKeyNotFound is returned when removing or walking from a price
	// that is not indexed.
	ErrKeyNotFound = errors.New("orderbook: price not indexed")

	// ErrDuplicateOrder is returned when adding an order whose key is
	// already present in the book.
	ErrDuplicateOrder = errors.New("orderbook: order already exists")

	// ErrOrderNotFound is returned when removing an order that does not
	// match anything in its price queue.
	ErrOrderNotFound = errors.New("orderbook: order not found")

	// ErrZeroSalt rejects orders without a nonce; the salt is part of the
	// order identity and zero would collide across makers.
	ErrZeroSalt = errors.New("orderbook: order salt must be nonzero")

	// ErrCorruptIndex reports a queue link pointing at a key with no
	// stored order. It means an invariant was violated earlier.
	ErrCorruptIndex = errors.New("orderbook: queue references missing order")
)
