package orderbook

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Side of an order. List orders sell (best price is the lowest), Bid
// orders buy (best price is the highest).
type Side uint8

const (
	List Side = iota
	Bid
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "list"
}

// MarshalText encodes the side as "list" or "bid".
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses "list" or "bid".
func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "list":
		*s = List
	case "bid":
		*s = Bid
	default:
		return fmt.Errorf("orderbook: unknown side %q", string(b))
	}
	return nil
}

// SaleKind says whether an order targets a specific token or the whole
// collection.
type SaleKind uint8

const (
	FixedPriceForCollection SaleKind = iota
	FixedPriceForItem
)

func (k SaleKind) String() string {
	if k == FixedPriceForItem {
		return "item"
	}
	return "collection"
}

// MarshalText encodes the sale kind as "collection" or "item".
func (k SaleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "collection" or "item".
func (k *SaleKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "collection":
		*k = FixedPriceForCollection
	case "item":
		*k = FixedPriceForItem
	default:
		return fmt.Errorf("orderbook: unknown sale kind %q", string(b))
	}
	return nil
}

// Address identifies a maker or an asset collection.
type Address [20]byte

// AddressFromHex parses a 0x-prefixed or bare hex address.
func AddressFromHex(s string) (Address, error) {
	var a Address
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	if len(b) != len(a) {
		return Address{}, fmt.Errorf("orderbook: address must be %d bytes, got %d", len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// MarshalText encodes the address as 0x-prefixed hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses a hex address.
func (a *Address) UnmarshalText(b []byte) error {
	v, err := AddressFromHex(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// OrderKey is the content-derived identifier of an order. Two orders with
// identical fields share a key on purpose: identity is idempotent. The
// zero value is the queue terminator / "no order" sentinel.
type OrderKey [32]byte

// NilOrderKey terminates FIFO queues.
var NilOrderKey OrderKey

func (k OrderKey) String() string { return "0x" + hex.EncodeToString(k[:]) }

// MarshalText encodes the key as 0x-prefixed hex.
func (k OrderKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a hex order key.
func (k *OrderKey) UnmarshalText(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	v, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(v) != len(k) {
		return fmt.Errorf("orderbook: order key must be %d bytes, got %d", len(k), len(v))
	}
	copy(k[:], v)
	return nil
}

// Order is one open order. Immutable once created: a price or amount
// change is modeled as remove-then-add of a new order with a new key.
type Order struct {
	Side       Side     `json:"side"`
	SaleKind   SaleKind `json:"saleKind"`
	Maker      Address  `json:"maker"`
	Collection Address  `json:"collection"`
	TokenID    uint64   `json:"tokenId"`
	Amount     uint64   `json:"amount"`
	Price      Price    `json:"price"`
	Expiry     int64    `json:"expiry"` // unix seconds, 0 = never
	Salt       uint64   `json:"salt"`
}

// Key derives the order's content hash over every semantically relevant
// field, length-free because all fields are fixed width.
func (o Order) Key() OrderKey {
	h := sha3.New256()

	var scratch [8]byte
	writeU64 := func(v uint64) {
		binary.BigEndian.PutUint64(scratch[:], v)
		h.Write(scratch[:])
	}

	h.Write([]byte{byte(o.Side), byte(o.SaleKind)})
	h.Write(o.Maker[:])
	h.Write(o.Collection[:])
	writeU64(o.TokenID)
	writeU64(o.Amount)
	price := o.Price.Bytes32()
	h.Write(price[:])
	writeU64(uint64(o.Expiry))
	writeU64(o.Salt)

	var k OrderKey
	h.Sum(k[:0])
	return k
}

// validate rejects orders the book must never index.
func (o Order) validate() error {
	if o.Price.IsEmpty() {
		return ErrEmptyKey
	}
	if o.Salt == 0 {
		return ErrZeroSalt
	}
	return nil
}

// sameIdentity is the removal predicate: price and side are implied by
// the queue being scanned, so they are deliberately not compared.
func sameIdentity(a, b Order) bool {
	return a.Maker == b.Maker &&
		a.SaleKind == b.SaleKind &&
		a.Expiry == b.Expiry &&
		a.Salt == b.Salt &&
		a.TokenID == b.TokenID &&
		a.Amount == b.Amount
}
