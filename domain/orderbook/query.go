package orderbook

import "time"

// MatchPolicy decides whether a stored order satisfies a query. The
// marketplace matching rules live here rather than in the index so that
// venues with different semantics can swap the predicate.
type MatchPolicy func(o Order, collection Address, tokenID uint64, side Side, saleKind SaleKind, now int64) bool

// DefaultPolicy implements the venue rules: same collection and side,
// not expired, and sale kinds must line up. Item queries only match
// item-specific orders with the same token; collection-wide orders never
// fill an item-specific query.
func DefaultPolicy(o Order, collection Address, tokenID uint64, side Side, saleKind SaleKind, now int64) bool {
	if o.Side != side || o.Collection != collection {
		return false
	}
	if o.Expiry != 0 && o.Expiry <= now {
		return false
	}
	switch saleKind {
	case FixedPriceForItem:
		if o.SaleKind != FixedPriceForItem || o.TokenID != tokenID {
			return false
		}
	case FixedPriceForCollection:
		if o.SaleKind != FixedPriceForCollection {
			return false
		}
	}
	return true
}

// Query is the read-only traversal layer over a Book: it walks prices
// best to worst and queues head to tail, applying a MatchPolicy.
type Query struct {
	book   *Book
	policy MatchPolicy
	now    func() int64
}

// NewQuery wraps book. A nil policy falls back to DefaultPolicy, a nil
// clock to wall time.
func NewQuery(book *Book, policy MatchPolicy, now func() int64) *Query {
	if policy == nil {
		policy = DefaultPolicy
	}
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Query{book: book, policy: policy, now: now}
}

// BestOrder returns the first matchable order walking prices from best
// to worst, or a zero order (empty price) when nothing matches.
func (qr *Query) BestOrder(collection Address, tokenID uint64, side Side, saleKind SaleKind) Order {
	now := qr.now()
	for price := qr.book.BestPrice(collection, side); !price.IsEmpty(); price = qr.book.NextBestPrice(collection, side, price) {
		q := qr.book.queueAt(collection, side, price)
		if q == nil {
			continue
		}
		for cur := q.head; cur != NilOrderKey; {
			so := qr.book.storedAt(cur)
			if so == nil {
				break
			}
			if qr.policy(so.order, collection, tokenID, side, saleKind, now) {
				return so.order
			}
			cur = so.next
		}
	}
	return Order{}
}

// Orders collects up to count matchable orders, walking price levels
// best to worst. Pagination: an empty price starts at the best level; a
// non-empty price without a cursor starts at the level after it; a
// cursor resumes inside that price's queue just past the cursor order.
// A level that emptied since the previous call resumes at the nearest
// worse level. Returns the collected orders and the key to resume from.
func (qr *Query) Orders(collection Address, tokenID uint64, side Side, saleKind SaleKind, count int, price Price, cursor OrderKey) ([]Order, OrderKey) {
	out := make([]Order, 0, count)
	if count <= 0 {
		return out, NilOrderKey
	}
	now := qr.now()

	var level Price
	switch {
	case price.IsEmpty():
		level = qr.book.BestPrice(collection, side)
	case cursor == NilOrderKey:
		level = qr.book.NextBestPrice(collection, side, price)
	default:
		level = price
	}

	last := NilOrderKey
	for !level.IsEmpty() && len(out) < count {
		q := qr.book.queueAt(collection, side, level)
		if q != nil {
			cur := q.head
			if cursor != NilOrderKey {
				// Skip forward to the order just after the cursor.
				for cur != NilOrderKey {
					so := qr.book.storedAt(cur)
					if so == nil {
						cur = NilOrderKey
						break
					}
					if cur == cursor {
						cur = so.next
						break
					}
					cur = so.next
				}
			}
			for cur != NilOrderKey && len(out) < count {
				so := qr.book.storedAt(cur)
				if so == nil {
					break
				}
				if qr.policy(so.order, collection, tokenID, side, saleKind, now) {
					out = append(out, so.order)
					last = cur
				}
				cur = so.next
			}
		}
		// The cursor only applies to the starting level.
		cursor = NilOrderKey
		if len(out) == count {
			break
		}
		level = qr.book.NextBestPrice(collection, side, level)
	}
	return out, last
}
