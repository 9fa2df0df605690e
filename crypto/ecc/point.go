// Package ecc defines the elliptic curve group abstraction used by the
// ElGamal envelope and the ballot proofs. Backends live in the subpackages
// and are selected by name through the curves package.
package ecc

import "math/big"

// Point is an element of a prime order (sub)group of an elliptic curve.
// Methods that take operands store the result in the receiver.
type Point interface {
	// New returns a new point of the same curve, set to the identity.
	New() Point
	// Order returns the order of the (sub)group generated by the base point.
	Order() *big.Int
	Add(a, b Point)
	ScalarMult(a Point, scalar *big.Int)
	// ScalarBaseMult sets the receiver to scalar times the generator.
	ScalarBaseMult(scalar *big.Int)
	Neg(a Point)
	Equal(a Point) bool
	SetZero()
	IsZero() bool
	Set(a Point)
	SetGenerator()
	// Marshal returns the canonical fixed size encoding of the point.
	Marshal() []byte
	// Unmarshal decodes a point and fails if it is not on the curve.
	Unmarshal(buf []byte) error
	// Point returns the affine coordinates.
	Point() (*big.Int, *big.Int)
	String() string
	// Type returns the curve name as registered in the curves package.
	Type() string
}
