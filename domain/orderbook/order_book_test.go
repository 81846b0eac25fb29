package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(b byte) Address {
	var a Address
	a[19] = b
	return a
}

func testOrder(mut ...func(*Order)) Order {
	o := Order{
		Side:       List,
		SaleKind:   FixedPriceForItem,
		Maker:      addr(1),
		Collection: addr(0xAA),
		TokenID:    5,
		Amount:     1,
		Price:      NewPrice(100),
		Salt:       1,
	}
	for _, m := range mut {
		m(&o)
	}
	return o
}

func TestAddOrderReturnsKey(t *testing.T) {
	b := NewBook()
	o := testOrder()

	key, err := b.AddOrder(o)
	require.NoError(t, err)
	assert.Equal(t, o.Key(), key)
	assert.Equal(t, 1, b.OpenOrders())
	assert.Equal(t, 1, b.Levels(o.Collection, List))
}

func TestAddOrderValidation(t *testing.T) {
	b := NewBook()

	_, err := b.AddOrder(testOrder(func(o *Order) { o.Price = EmptyPrice }))
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = b.AddOrder(testOrder(func(o *Order) { o.Salt = 0 }))
	assert.ErrorIs(t, err, ErrZeroSalt)

	assert.Equal(t, 0, b.OpenOrders())
}

func TestAddOrderDuplicate(t *testing.T) {
	b := NewBook()
	o := testOrder()

	_, err := b.AddOrder(o)
	require.NoError(t, err)

	_, err = b.AddOrder(o)
	assert.ErrorIs(t, err, ErrDuplicateOrder)
	assert.Equal(t, 1, b.OpenOrders())
	assert.Equal(t, 1, b.Levels(o.Collection, List))
}

func TestRemoveOrderRoundTrip(t *testing.T) {
	b := NewBook()
	resident := testOrder(func(o *Order) { o.Price = NewPrice(90); o.Salt = 7 })
	_, err := b.AddOrder(resident)
	require.NoError(t, err)

	o := testOrder()
	addKey, err := b.AddOrder(o)
	require.NoError(t, err)

	removeKey, err := b.RemoveOrder(o)
	require.NoError(t, err)
	assert.Equal(t, addKey, removeKey)

	// State is back to what it was before the add.
	assert.Equal(t, 1, b.OpenOrders())
	assert.Equal(t, 1, b.Levels(o.Collection, List))
	assert.Equal(t, NewPrice(90), b.BestPrice(o.Collection, List))
	assert.Nil(t, b.queueAt(o.Collection, List, o.Price))
}

func TestRemoveOrderIdentityMismatch(t *testing.T) {
	b := NewBook()
	o := testOrder()
	_, err := b.AddOrder(o)
	require.NoError(t, err)

	// Same queue, different salt: nothing to remove, state untouched.
	_, err = b.RemoveOrder(testOrder(func(x *Order) { x.Salt = 99 }))
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 1, b.OpenOrders())
	assert.Equal(t, 1, b.Levels(o.Collection, List))

	// Empty price level entirely.
	_, err = b.RemoveOrder(testOrder(func(x *Order) { x.Price = NewPrice(777) }))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRemoveOrderMiddleOfQueue(t *testing.T) {
	b := NewBook()
	first := testOrder(func(o *Order) { o.Salt = 1 })
	second := testOrder(func(o *Order) { o.Salt = 2 })
	third := testOrder(func(o *Order) { o.Salt = 3 })
	for _, o := range []Order{first, second, third} {
		_, err := b.AddOrder(o)
		require.NoError(t, err)
	}

	_, err := b.RemoveOrder(second)
	require.NoError(t, err)

	q := b.queueAt(first.Collection, List, first.Price)
	require.NotNil(t, q)
	assert.Equal(t, first.Key(), q.head)
	assert.Equal(t, third.Key(), q.tail)
	assert.Equal(t, third.Key(), b.storedAt(first.Key()).next)
	assert.Equal(t, NilOrderKey, b.storedAt(third.Key()).next)

	// Removing the tail patches tail back to head.
	_, err = b.RemoveOrder(third)
	require.NoError(t, err)
	assert.Equal(t, first.Key(), q.tail)
	assert.Equal(t, NilOrderKey, b.storedAt(first.Key()).next)
}

func TestBestPriceSides(t *testing.T) {
	b := NewBook()
	col := addr(0xAA)

	// Two bids at 10 and 20.
	for i, p := range []uint64{10, 20} {
		_, err := b.AddOrder(testOrder(func(o *Order) {
			o.Side = Bid
			o.Price = NewPrice(p)
			o.Salt = uint64(i + 1)
		}))
		require.NoError(t, err)
	}

	assert.Equal(t, NewPrice(20), b.BestPrice(col, Bid))
	assert.Equal(t, NewPrice(10), b.NextBestPrice(col, Bid, NewPrice(20)))
	assert.Equal(t, EmptyPrice, b.NextBestPrice(col, Bid, NewPrice(10)))

	// Removing the best bid drops its level from the tree.
	_, err := b.RemoveOrder(testOrder(func(o *Order) {
		o.Side = Bid
		o.Price = NewPrice(20)
		o.Salt = 2
	}))
	require.NoError(t, err)
	assert.Equal(t, NewPrice(10), b.BestPrice(col, Bid))
	assert.Equal(t, 1, b.Levels(col, Bid))

	// List side prefers the lowest price.
	for i, p := range []uint64{30, 15} {
		_, err := b.AddOrder(testOrder(func(o *Order) {
			o.Price = NewPrice(p)
			o.Salt = uint64(i + 10)
		}))
		require.NoError(t, err)
	}
	assert.Equal(t, NewPrice(15), b.BestPrice(col, List))
	assert.Equal(t, NewPrice(30), b.NextBestPrice(col, List, NewPrice(15)))
}

func TestNextBestPriceEmptyStartsAtBest(t *testing.T) {
	b := NewBook()
	col := addr(0xAA)
	_, err := b.AddOrder(testOrder())
	require.NoError(t, err)

	assert.Equal(t, b.BestPrice(col, List), b.NextBestPrice(col, List, EmptyPrice))
	assert.Equal(t, EmptyPrice, b.BestPrice(col, Bid))
}

func TestTreeQueueConsistency(t *testing.T) {
	b := NewBook()
	col := addr(0xAA)

	prices := []uint64{50, 30, 70, 30, 50, 90}
	for i, p := range prices {
		_, err := b.AddOrder(testOrder(func(o *Order) {
			o.Price = NewPrice(p)
			o.Salt = uint64(i + 1)
		}))
		require.NoError(t, err)
	}

	// Every tree price has a non-empty queue and vice versa.
	tree := b.trees[bookKey{col, List}]
	require.NotNil(t, tree)
	for p := tree.First(); !p.IsEmpty(); {
		q := b.queueAt(col, List, p)
		require.NotNil(t, q, "price %s indexed without a queue", p)
		assert.False(t, q.empty())
		n, err := tree.Next(p)
		require.NoError(t, err)
		p = n
	}
	for lk, q := range b.queues {
		assert.True(t, b.trees[bookKey{lk.collection, lk.side}].Exists(lk.price))
		assert.False(t, q.empty())
	}
}
