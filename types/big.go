package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a decimal string and
// CBOR to the big-endian bytes of its absolute value.
type BigInt big.Int

// MarshalText returns the decimal string representation of the big number.
func (i *BigInt) MarshalText() ([]byte, error) {
	return (*big.Int)(i).MarshalText()
}

// UnmarshalText parses a decimal string.
func (i *BigInt) UnmarshalText(data []byte) error {
	if _, ok := (*big.Int)(i).SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid big number: %q", data)
	}
	return nil
}

func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal((*big.Int)(i).Bytes())
}

func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	(*big.Int)(i).SetBytes(b)
	return nil
}

// MathBigInt returns the underlying *big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetUint64 sets the value of x to the big number.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	(*big.Int)(i).SetUint64(x)
	return i
}

// String returns the decimal representation.
func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}

// NewBigInt wraps a copy of x.
func NewBigInt(x *big.Int) *BigInt {
	return (*BigInt)(new(big.Int).Set(x))
}

// Equal reports whether both numbers hold the same value.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return i == j
	}
	return (*big.Int)(i).Cmp((*big.Int)(j)) == 0
}
