package orderbook

import (
	"github.com/holiman/uint256"
)

// Price is an opaque, totally ordered key used to rank orders. It wraps a
// fixed-width unsigned integer so it can be used directly as a map key.
// The zero value is the reserved empty sentinel and is never a valid price.
type Price struct {
	v uint256.Int
}

// EmptyPrice is the "no price" sentinel.
var EmptyPrice Price

// NewPrice builds a Price from a uint64. Convenient for tests and APIs
// that do not need the full width.
func NewPrice(v uint64) Price {
	var p Price
	p.v.SetUint64(v)
	return p
}

// PriceFromUint256 copies v into a Price.
func PriceFromUint256(v *uint256.Int) Price {
	var p Price
	p.v.Set(v)
	return p
}

// PriceFromDecimal parses a base-10 price string.
func PriceFromDecimal(s string) (Price, error) {
	var p Price
	if err := p.v.SetFromDecimal(s); err != nil {
		return EmptyPrice, err
	}
	return p, nil
}

// IsEmpty reports whether p is the empty sentinel.
func (p Price) IsEmpty() bool { return p.v.IsZero() }

// Cmp returns -1, 0 or 1 depending on how p compares to q.
func (p Price) Cmp(q Price) int { return p.v.Cmp(&q.v) }

// Lt reports p < q.
func (p Price) Lt(q Price) bool { return p.v.Lt(&q.v) }

// Gt reports p > q.
func (p Price) Gt(q Price) bool { return p.v.Gt(&q.v) }

// Bytes32 returns the 32-byte big-endian representation, used when
// deriving order keys.
func (p Price) Bytes32() [32]byte { return p.v.Bytes32() }

// Uint64 truncates the price to 64 bits.
func (p Price) Uint64() uint64 { return p.v.Uint64() }

func (p Price) String() string { return p.v.Dec() }

// MarshalText encodes the price as a base-10 string.
func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.v.Dec()), nil
}

// UnmarshalText parses a base-10 price string.
func (p *Price) UnmarshalText(b []byte) error {
	return p.v.SetFromDecimal(string(b))
}
