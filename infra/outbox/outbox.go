// Package outbox stages accepted order events for broadcast. Events are
// durable in a pebble keyspace and move through NEW -> SENT -> ACKED so
// a crashed broadcaster can resume without losing or re-acking events.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// State of an outbox event.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Record is one staged event.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 1+4+8+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < 13 {
		return Record{}, errors.New("outbox: invalid record length")
	}
	payload := make([]byte, len(b)-13)
	copy(payload, b[13:])
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

// Outbox is the pebble-backed event store.
type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // we WANT durability
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stages a new event (called by the order service).
func (o *Outbox) Put(seq uint64, payload []byte) error {
	rec := Record{
		State:   StateNew,
		Payload: payload,
	}
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// MarkSent flags an event as handed to the producer.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.transition(seq, StateSent, false)
}

// MarkAcked flags an event as confirmed by the broker.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.transition(seq, StateAcked, false)
}

// MarkFailed flags a failed publish and bumps the retry counter.
func (o *Outbox) MarkFailed(seq uint64) error {
	return o.transition(seq, StateFailed, true)
}

func (o *Outbox) transition(seq uint64, state State, bumpRetries bool) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.LastAttempt = time.Now().UnixNano()
	if bumpRetries {
		rec.Retries++
	}
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Delete removes an event (cleanup of ACKED records).
func (o *Outbox) Delete(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

// Get returns the current record for a sequence.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// ScanPending iterates NEW and FAILED events in sequence order.
// This is the broadcaster's work queue.
func (o *Outbox) ScanPending(fn func(Record) error) error {
	return o.scan(func(rec Record) error {
		if rec.State != StateNew && rec.State != StateFailed {
			return nil
		}
		return fn(rec)
	})
}

// ScanByState iterates all events in the given state.
func (o *Outbox) ScanByState(state State, fn func(Record) error) error {
	return o.scan(func(rec Record) error {
		if rec.State != state {
			return nil
		}
		return fn(rec)
	})
}

func (o *Outbox) scan(fn func(Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("event/"),
		UpperBound: []byte("event/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("event/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(b), "event/%d", &seq)
	return seq, err
}
