package orderbook

// bookKey scopes one price tree.
type bookKey struct {
	collection Address
	side       Side
}

// levelKey scopes one FIFO queue.
type levelKey struct {
	collection Address
	side       Side
	price      Price
}

// Book is the price-ordered order index: one red-black tree per
// (collection, side), one FIFO queue per open price level, and a global
// map from order key to stored order. It is single-writer and
// deterministic; the caller serializes mutations.
//
// Invariant: a price is indexed in the tree for (collection, side) iff
// its queue is non-empty.
type Book struct {
	trees  map[bookKey]*PriceTree
	queues map[levelKey]*orderQueue
	orders map[OrderKey]*storedOrder
}

// NewBook creates an empty index.
func NewBook() *Book {
	return &Book{
		trees:  make(map[bookKey]*PriceTree),
		queues: make(map[levelKey]*orderQueue),
		orders: make(map[OrderKey]*storedOrder),
	}
}

// OpenOrders returns the total number of stored orders.
func (b *Book) OpenOrders() int { return len(b.orders) }

// Levels returns the number of open price levels for one (collection,
// side) pair.
func (b *Book) Levels(collection Address, side Side) int {
	t := b.trees[bookKey{collection, side}]
	if t == nil {
		return 0
	}
	return t.Size()
}

// AddOrder indexes o and returns its content-derived key.
// Fails without side effects on invalid input or a duplicate identity.
func (b *Book) AddOrder(o Order) (OrderKey, error) {
	if err := o.validate(); err != nil {
		return NilOrderKey, err
	}
	key := o.Key()
	if _, ok := b.orders[key]; ok {
		return NilOrderKey, ErrDuplicateOrder
	}

	bk := bookKey{o.Collection, o.Side}
	tree := b.trees[bk]
	if tree == nil {
		tree = NewPriceTree()
		b.trees[bk] = tree
	}
	if !tree.Exists(o.Price) {
		if err := tree.Insert(o.Price); err != nil {
			return NilOrderKey, err
		}
	}

	lk := levelKey{o.Collection, o.Side, o.Price}
	q := b.queues[lk]
	if q == nil {
		q = &orderQueue{}
		b.queues[lk] = q
	}
	b.orders[key] = &storedOrder{order: o}
	q.enqueue(key, b.orders)
	return key, nil
}

// RemoveOrder locates o in its price queue by logical identity (maker,
// saleKind, expiry, salt, tokenID, amount), unlinks it and drops the
// price level when the queue empties. Returns the removed order's key.
func (b *Book) RemoveOrder(o Order) (OrderKey, error) {
	lk := levelKey{o.Collection, o.Side, o.Price}
	q := b.queues[lk]
	if q == nil {
		return NilOrderKey, ErrOrderNotFound
	}

	prev := NilOrderKey
	for cur := q.head; cur != NilOrderKey; {
		so := b.orders[cur]
		if so == nil {
			return NilOrderKey, ErrCorruptIndex
		}
		if !sameIdentity(so.order, o) {
			prev = cur
			cur = so.next
			continue
		}

		q.unlink(prev, cur, b.orders)
		delete(b.orders, cur)

		if q.empty() {
			delete(b.queues, lk)
			bk := bookKey{o.Collection, o.Side}
			tree := b.trees[bk]
			if tree == nil {
				return NilOrderKey, ErrCorruptIndex
			}
			if err := tree.Remove(o.Price); err != nil {
				return NilOrderKey, err
			}
			if tree.Size() == 0 {
				delete(b.trees, bk)
			}
		}
		return cur, nil
	}
	return NilOrderKey, ErrOrderNotFound
}

// BestPrice returns the highest open price for Bid, the lowest for List,
// or the empty sentinel when no orders exist for (collection, side).
func (b *Book) BestPrice(collection Address, side Side) Price {
	tree := b.trees[bookKey{collection, side}]
	if tree == nil {
		return EmptyPrice
	}
	if side == Bid {
		return tree.Last()
	}
	return tree.First()
}

// NextBestPrice returns the nearest open price strictly worse than
// price in priority order, or the best price when price is the empty
// sentinel. price itself does not have to be open: a level that emptied
// between paginated calls still resolves to the next surviving level.
func (b *Book) NextBestPrice(collection Address, side Side, price Price) Price {
	if price.IsEmpty() {
		return b.BestPrice(collection, side)
	}
	tree := b.trees[bookKey{collection, side}]
	if tree == nil {
		return EmptyPrice
	}
	var (
		next Price
		err  error
	)
	if side == Bid {
		next, err = tree.PrevBefore(price)
	} else {
		next, err = tree.NextAfter(price)
	}
	if err != nil {
		return EmptyPrice
	}
	return next
}

// queueAt exposes one queue to the query layer.
func (b *Book) queueAt(collection Address, side Side, price Price) *orderQueue {
	return b.queues[levelKey{collection, side, price}]
}

// storedAt resolves a queue link.
func (b *Book) storedAt(key OrderKey) *storedOrder {
	return b.orders[key]
}
