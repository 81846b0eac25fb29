package orderbook

// storedOrder is a node of a per-price FIFO list. Links are OrderKeys
// resolved through the book's order map, not pointers, so the nil key
// doubles as the list terminator.
type storedOrder struct {
	order Order
	next  OrderKey
}

// orderQueue is the FIFO list for one (collection, side, price) triple.
// Empty queue <=> head == tail == NilOrderKey.
type orderQueue struct {
	head OrderKey
	tail OrderKey
}

func (q *orderQueue) empty() bool {
	return q.head == NilOrderKey && q.tail == NilOrderKey
}

// enqueue appends key at the tail, preserving arrival order.
func (q *orderQueue) enqueue(key OrderKey, orders map[OrderKey]*storedOrder) {
	if q.head == NilOrderKey {
		q.head = key
		q.tail = key
		return
	}
	orders[q.tail].next = key
	q.tail = key
}

// unlink removes key from the list, given its predecessor (NilOrderKey
// when key is the head).
func (q *orderQueue) unlink(prev, key OrderKey, orders map[OrderKey]*storedOrder) {
	next := orders[key].next
	if prev == NilOrderKey {
		q.head = next
	} else {
		orders[prev].next = next
	}
	if q.tail == key {
		q.tail = prev
	}
}
