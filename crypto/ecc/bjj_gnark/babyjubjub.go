// Package bjj implements ecc.Point over the gnark-crypto BabyJubJub curve
// (twisted Edwards form over the BN254 scalar field).
package bjj

import (
	"fmt"
	"math/big"

	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/vocdoni/ciphervote/crypto/ecc"
)

const (
	CurveType = "bjj_gnark"
	// size of the compressed encoding
	pointSize = 32
)

var params = babyjubjub.GetEdwardsCurve()

// BJJ is the affine representation of a BabyJubJub group element.
type BJJ struct {
	inner babyjubjub.PointAffine
}

// New creates a new BJJ point set to the identity element.
func New() ecc.Point {
	p := &BJJ{}
	p.SetZero()
	return p
}

func (g *BJJ) New() ecc.Point {
	return New()
}

// Order returns the order of the BabyJubJub prime subgroup.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(&params.Order)
}

func (g *BJJ) Add(a, b ecc.Point) {
	var res babyjubjub.PointAffine
	res.Add(&a.(*BJJ).inner, &b.(*BJJ).inner)
	g.inner = res
}

func (g *BJJ) ScalarMult(a ecc.Point, scalar *big.Int) {
	var res babyjubjub.PointAffine
	res.ScalarMultiplication(&a.(*BJJ).inner, scalar)
	g.inner = res
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	var res babyjubjub.PointAffine
	res.ScalarMultiplication(&params.Base, scalar)
	g.inner = res
}

func (g *BJJ) Neg(a ecc.Point) {
	var res babyjubjub.PointAffine
	res.Neg(&a.(*BJJ).inner)
	g.inner = res
}

func (g *BJJ) Equal(a ecc.Point) bool {
	other, ok := a.(*BJJ)
	if !ok {
		return false
	}
	return g.inner.Equal(&other.inner)
}

// SetZero sets the point to the identity element (0, 1).
func (g *BJJ) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetOne()
}

func (g *BJJ) IsZero() bool {
	return g.inner.IsZero()
}

func (g *BJJ) Set(a ecc.Point) {
	g.inner.Set(&a.(*BJJ).inner)
}

func (g *BJJ) SetGenerator() {
	g.inner.Set(&params.Base)
}

// Marshal returns the 32 bytes compressed encoding.
func (g *BJJ) Marshal() []byte {
	return g.inner.Marshal()
}

func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != pointSize {
		return fmt.Errorf("invalid point size: got %d bytes, expected %d", len(buf), pointSize)
	}
	var p babyjubjub.PointAffine
	if err := p.Unmarshal(buf); err != nil {
		return fmt.Errorf("invalid point: %w", err)
	}
	if !p.IsOnCurve() {
		return fmt.Errorf("point is not on the curve")
	}
	g.inner = p
	return nil
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	g.inner.X.BigInt(x)
	g.inner.Y.BigInt(y)
	return x, y
}

func (g *BJJ) String() string {
	x, y := g.Point()
	return fmt.Sprintf("%s,%s", x.String(), y.String())
}

func (g *BJJ) Type() string {
	return CurveType
}
