// Package bn254 implements ecc.Point over the G1 group of the BN254 curve.
package bn254

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/vocdoni/ciphervote/crypto/ecc"
)

const CurveType = "bn254"

var generator bn254.G1Affine

func init() {
	_, _, generator, _ = bn254.Generators()
}

// G1 is the affine representation of a BN254 G1 element. The zero value is
// the point at infinity.
type G1 struct {
	inner bn254.G1Affine
}

// New creates a new G1 point set to the identity element.
func New() ecc.Point {
	return &G1{}
}

func (g *G1) New() ecc.Point {
	return New()
}

func (g *G1) Order() *big.Int {
	return fr.Modulus()
}

func (g *G1) Add(a, b ecc.Point) {
	var res bn254.G1Affine
	res.Add(&a.(*G1).inner, &b.(*G1).inner)
	g.inner = res
}

func (g *G1) ScalarMult(a ecc.Point, scalar *big.Int) {
	var res bn254.G1Affine
	res.ScalarMultiplication(&a.(*G1).inner, scalar)
	g.inner = res
}

func (g *G1) ScalarBaseMult(scalar *big.Int) {
	var res bn254.G1Affine
	res.ScalarMultiplicationBase(scalar)
	g.inner = res
}

func (g *G1) Neg(a ecc.Point) {
	var res bn254.G1Affine
	res.Neg(&a.(*G1).inner)
	g.inner = res
}

func (g *G1) Equal(a ecc.Point) bool {
	other, ok := a.(*G1)
	if !ok {
		return false
	}
	return g.inner.Equal(&other.inner)
}

func (g *G1) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetZero()
}

func (g *G1) IsZero() bool {
	return g.inner.IsInfinity()
}

func (g *G1) Set(a ecc.Point) {
	g.inner.Set(&a.(*G1).inner)
}

func (g *G1) SetGenerator() {
	g.inner.Set(&generator)
}

// Marshal returns the 32 bytes compressed encoding.
func (g *G1) Marshal() []byte {
	b := g.inner.Bytes()
	return b[:]
}

// Unmarshal decodes a compressed point. SetBytes checks curve and subgroup
// membership.
func (g *G1) Unmarshal(buf []byte) error {
	var p bn254.G1Affine
	if _, err := p.SetBytes(buf); err != nil {
		return fmt.Errorf("invalid point: %w", err)
	}
	g.inner = p
	return nil
}

func (g *G1) Point() (*big.Int, *big.Int) {
	return g.inner.X.BigInt(new(big.Int)), g.inner.Y.BigInt(new(big.Int))
}

func (g *G1) String() string {
	x, y := g.Point()
	return fmt.Sprintf("%s,%s", x.String(), y.String())
}

func (g *G1) Type() string {
	return CurveType
}
