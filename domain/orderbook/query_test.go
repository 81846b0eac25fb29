package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(ts int64) func() int64 {
	return func() int64 { return ts }
}

func TestBestOrderFIFO(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))

	first := testOrder(func(o *Order) { o.Maker = addr(1); o.Salt = 1 })
	second := testOrder(func(o *Order) { o.Maker = addr(2); o.Salt = 2 })
	_, err := b.AddOrder(first)
	require.NoError(t, err)
	_, err = b.AddOrder(second)
	require.NoError(t, err)

	got := q.BestOrder(first.Collection, 5, List, FixedPriceForItem)
	assert.Equal(t, first, got, "earliest arrival at the price wins")

	_, err = b.RemoveOrder(first)
	require.NoError(t, err)
	got = q.BestOrder(first.Collection, 5, List, FixedPriceForItem)
	assert.Equal(t, second, got)
}

func TestBestOrderWalksPriceLevels(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))
	col := addr(0xAA)

	// Best list price holds only an expired order; the next level holds a
	// live one.
	expired := testOrder(func(o *Order) { o.Price = NewPrice(50); o.Expiry = 900; o.Salt = 1 })
	live := testOrder(func(o *Order) { o.Price = NewPrice(60); o.Salt = 2 })
	_, err := b.AddOrder(expired)
	require.NoError(t, err)
	_, err = b.AddOrder(live)
	require.NoError(t, err)

	got := q.BestOrder(col, 5, List, FixedPriceForItem)
	assert.Equal(t, live, got)
}

func TestBestOrderNoMatchReturnsZero(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))

	got := q.BestOrder(addr(0xAA), 5, List, FixedPriceForItem)
	assert.True(t, got.Price.IsEmpty())
	assert.Equal(t, Order{}, got)
}

func TestCollectionBidNeverMatchesItemQuery(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))
	col := addr(0xAA)

	colBid := testOrder(func(o *Order) {
		o.Side = Bid
		o.SaleKind = FixedPriceForCollection
		o.TokenID = 0
		o.Salt = 1
	})
	_, err := b.AddOrder(colBid)
	require.NoError(t, err)

	got := q.BestOrder(col, 5, Bid, FixedPriceForItem)
	assert.True(t, got.Price.IsEmpty(), "collection-wide bid must not fill an item query")

	got = q.BestOrder(col, 0, Bid, FixedPriceForCollection)
	assert.Equal(t, colBid, got)
}

func TestItemBidMustMatchToken(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))
	col := addr(0xAA)

	bid := testOrder(func(o *Order) { o.Side = Bid; o.TokenID = 7; o.Salt = 1 })
	_, err := b.AddOrder(bid)
	require.NoError(t, err)

	assert.True(t, q.BestOrder(col, 5, Bid, FixedPriceForItem).Price.IsEmpty())
	assert.Equal(t, bid, q.BestOrder(col, 7, Bid, FixedPriceForItem))
}

func TestOrdersPagination(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))
	col := addr(0xAA)

	// Three orders at 100, two at 110, one at 120; list side walks
	// cheapest first.
	var want []Order
	salt := uint64(1)
	for _, spec := range []struct {
		price uint64
		n     int
	}{{100, 3}, {110, 2}, {120, 1}} {
		for i := 0; i < spec.n; i++ {
			o := testOrder(func(o *Order) {
				o.Price = NewPrice(spec.price)
				o.Salt = salt
			})
			salt++
			_, err := b.AddOrder(o)
			require.NoError(t, err)
			want = append(want, o)
		}
	}

	// First page.
	page, cursor := q.Orders(col, 5, List, FixedPriceForItem, 2, EmptyPrice, NilOrderKey)
	require.Len(t, page, 2)
	assert.Equal(t, want[0], page[0])
	assert.Equal(t, want[1], page[1])
	assert.Equal(t, want[1].Key(), cursor)

	// Second page resumes inside the 100 level via the cursor.
	page, cursor = q.Orders(col, 5, List, FixedPriceForItem, 2, page[1].Price, cursor)
	require.Len(t, page, 2)
	assert.Equal(t, want[2], page[0])
	assert.Equal(t, want[3], page[1])

	// Third page crosses into the last level.
	page, cursor = q.Orders(col, 5, List, FixedPriceForItem, 2, page[1].Price, cursor)
	require.Len(t, page, 2)
	assert.Equal(t, want[4], page[0])
	assert.Equal(t, want[5], page[1])

	// Exhausted.
	page, cursor = q.Orders(col, 5, List, FixedPriceForItem, 2, page[1].Price, cursor)
	assert.Empty(t, page)
	assert.Equal(t, NilOrderKey, cursor)
}

func TestOrdersPriceWithoutCursorStartsAtNextLevel(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))
	col := addr(0xAA)

	at100 := testOrder(func(o *Order) { o.Price = NewPrice(100); o.Salt = 1 })
	at110 := testOrder(func(o *Order) { o.Price = NewPrice(110); o.Salt = 2 })
	for _, o := range []Order{at100, at110} {
		_, err := b.AddOrder(o)
		require.NoError(t, err)
	}

	page, _ := q.Orders(col, 5, List, FixedPriceForItem, 10, NewPrice(100), NilOrderKey)
	require.Len(t, page, 1)
	assert.Equal(t, at110, page[0])
}

func TestOrdersResumeAfterLevelEmptied(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))
	col := addr(0xAA)

	first := testOrder(func(o *Order) { o.Price = NewPrice(100); o.Salt = 1 })
	second := testOrder(func(o *Order) { o.Price = NewPrice(100); o.Salt = 2 })
	third := testOrder(func(o *Order) { o.Price = NewPrice(110); o.Salt = 3 })
	for _, o := range []Order{first, second, third} {
		_, err := b.AddOrder(o)
		require.NoError(t, err)
	}

	page, cursor := q.Orders(col, 5, List, FixedPriceForItem, 2, EmptyPrice, NilOrderKey)
	require.Len(t, page, 2)

	// The whole 100 level is cancelled before the next page is read.
	_, err := b.RemoveOrder(first)
	require.NoError(t, err)
	_, err = b.RemoveOrder(second)
	require.NoError(t, err)

	page, _ = q.Orders(col, 5, List, FixedPriceForItem, 2, NewPrice(100), cursor)
	require.Len(t, page, 1, "pagination must survive the resume level emptying")
	assert.Equal(t, third, page[0])
}

func TestOrdersCursorSkipToleratesBrokenLink(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))
	col := addr(0xAA)

	first := testOrder(func(o *Order) { o.Salt = 1 })
	second := testOrder(func(o *Order) { o.Salt = 2 })
	firstKey, err := b.AddOrder(first)
	require.NoError(t, err)
	secondKey, err := b.AddOrder(second)
	require.NoError(t, err)

	// Sever the queue head so the cursor can no longer be reached.
	delete(b.orders, firstKey)

	page, cursor := q.Orders(col, 5, List, FixedPriceForItem, 10, first.Price, secondKey)
	assert.Empty(t, page)
	assert.Equal(t, NilOrderKey, cursor)
}

func TestOrdersSkipsExpired(t *testing.T) {
	b := NewBook()
	q := NewQuery(b, nil, fixedNow(1000))
	col := addr(0xAA)

	expired := testOrder(func(o *Order) { o.Expiry = 1000; o.Salt = 1 }) // expiry <= now
	live := testOrder(func(o *Order) { o.Expiry = 1001; o.Salt = 2 })
	for _, o := range []Order{expired, live} {
		_, err := b.AddOrder(o)
		require.NoError(t, err)
	}

	page, _ := q.Orders(col, 5, List, FixedPriceForItem, 10, EmptyPrice, NilOrderKey)
	require.Len(t, page, 1)
	assert.Equal(t, live, page[0])
}

func TestCustomPolicy(t *testing.T) {
	b := NewBook()
	// A policy that only admits a single maker.
	only := addr(9)
	q := NewQuery(b, func(o Order, _ Address, _ uint64, _ Side, _ SaleKind, _ int64) bool {
		return o.Maker == only
	}, fixedNow(1000))

	other := testOrder(func(o *Order) { o.Maker = addr(1); o.Salt = 1 })
	wanted := testOrder(func(o *Order) { o.Maker = only; o.Salt = 2 })
	for _, o := range []Order{other, wanted} {
		_, err := b.AddOrder(o)
		require.NoError(t, err)
	}

	got := q.BestOrder(other.Collection, 5, List, FixedPriceForItem)
	assert.Equal(t, wanted, got)
}
