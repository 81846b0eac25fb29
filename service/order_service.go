package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"freya/domain/orderbook"
	"freya/infra/outbox"
	"freya/infra/sequence"
	"freya/infra/wal"
)

// Notifier publishes best-effort order notifications. Satisfied by
// infra/kafka.Producer.
type Notifier interface {
	Send(ctx context.Context, key, value []byte) error
}

// OrderService is the only write entry point into the system. It
// serializes every mutation, so the index below it never sees
// concurrent or partial updates.
//
// Write path per call: sequence -> WAL intent -> index mutation ->
// outbox staging -> best-effort notify. The journal is written before
// the mutation; replay skips intents whose mutation failed, which is
// deterministic because the index is.
type OrderService struct {
	mu       sync.Mutex
	book     *orderbook.Book
	query    *orderbook.Query
	seq      *sequence.Sequencer
	wal      *wal.WAL       // nil disables journaling (tests)
	outbox   *outbox.Outbox // nil disables staging (tests)
	notifier Notifier       // nil disables notifications
	log      zerolog.Logger
}

// NewOrderService wires all dependencies. No globals.
func NewOrderService(
	book *orderbook.Book,
	query *orderbook.Query,
	seqGen *sequence.Sequencer,
	w *wal.WAL,
	ob *outbox.Outbox,
	notifier Notifier,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		book:     book,
		query:    query,
		seq:      seqGen,
		wal:      w,
		outbox:   ob,
		notifier: notifier,
		log:      log,
	}
}

// AddOrder journals and indexes a new order, returning its key.
func (s *OrderService) AddOrder(ctx context.Context, o orderbook.Order) (orderbook.OrderKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq.Next()
	payload, err := encodeEvent(Event{
		V:     1,
		Type:  EventAdd,
		Seq:   seq,
		Key:   o.Key(),
		Order: o,
	})
	if err != nil {
		return orderbook.NilOrderKey, err
	}

	if s.wal != nil {
		if err := s.wal.Append(wal.NewRecord(wal.RecordAdd, seq, payload)); err != nil {
			return orderbook.NilOrderKey, fmt.Errorf("journal add: %w", err)
		}
	}

	key, err := s.book.AddOrder(o)
	if err != nil {
		s.log.Warn().Err(err).Uint64("seq", seq).Msg("add rejected")
		return orderbook.NilOrderKey, err
	}

	if s.outbox != nil {
		if err := s.outbox.Put(seq, payload); err != nil {
			s.log.Error().Err(err).Uint64("seq", seq).Msg("outbox staging failed")
		}
	}
	s.notify(ctx, key, payload)

	s.log.Info().
		Uint64("seq", seq).
		Stringer("key", key).
		Stringer("collection", o.Collection).
		Stringer("side", o.Side).
		Stringer("price", o.Price).
		Msg("order added")
	return key, nil
}

// RemoveOrder journals and unindexes an order, returning the removed
// order's key.
func (s *OrderService) RemoveOrder(ctx context.Context, o orderbook.Order) (orderbook.OrderKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq.Next()
	payload, err := encodeEvent(Event{
		V:     1,
		Type:  EventRemove,
		Seq:   seq,
		Key:   o.Key(),
		Order: o,
	})
	if err != nil {
		return orderbook.NilOrderKey, err
	}

	if s.wal != nil {
		if err := s.wal.Append(wal.NewRecord(wal.RecordRemove, seq, payload)); err != nil {
			return orderbook.NilOrderKey, fmt.Errorf("journal remove: %w", err)
		}
	}

	key, err := s.book.RemoveOrder(o)
	if err != nil {
		s.log.Warn().Err(err).Uint64("seq", seq).Msg("remove rejected")
		return orderbook.NilOrderKey, err
	}

	if s.outbox != nil {
		if err := s.outbox.Put(seq, payload); err != nil {
			s.log.Error().Err(err).Uint64("seq", seq).Msg("outbox staging failed")
		}
	}
	s.notify(ctx, key, payload)

	s.log.Info().
		Uint64("seq", seq).
		Stringer("key", key).
		Msg("order removed")
	return key, nil
}

func (s *OrderService) notify(ctx context.Context, key orderbook.OrderKey, payload []byte) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, key[:], payload); err != nil {
		s.log.Warn().Err(err).Msg("notify failed")
	}
}

// BestPrice returns the best open price for (collection, side).
func (s *OrderService) BestPrice(collection orderbook.Address, side orderbook.Side) orderbook.Price {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.BestPrice(collection, side)
}

// NextBestPrice returns the price one step worse than price.
func (s *OrderService) NextBestPrice(collection orderbook.Address, side orderbook.Side, price orderbook.Price) orderbook.Price {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.NextBestPrice(collection, side, price)
}

// BestOrder returns the best matchable order, or a zero order.
func (s *OrderService) BestOrder(collection orderbook.Address, tokenID uint64, side orderbook.Side, saleKind orderbook.SaleKind) orderbook.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query.BestOrder(collection, tokenID, side, saleKind)
}

// Orders returns up to count matchable orders plus a resume cursor.
func (s *OrderService) Orders(collection orderbook.Address, tokenID uint64, side orderbook.Side, saleKind orderbook.SaleKind, count int, price orderbook.Price, cursor orderbook.OrderKey) ([]orderbook.Order, orderbook.OrderKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query.Orders(collection, tokenID, side, saleKind, count, price, cursor)
}

// OpenOrders reports the number of indexed orders.
func (s *OrderService) OpenOrders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.OpenOrders()
}
