// Package bjj implements ecc.Point over the iden3 BabyJubJub curve, using
// the B8 base point and its prime order subgroup.
package bjj

import (
	"fmt"
	"math/big"

	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/vocdoni/ciphervote/crypto/ecc"
)

const CurveType = "bjj_iden3"

// BJJ is the affine representation of a BabyJubJub group element.
type BJJ struct {
	inner *babyjubjub.Point
}

// New creates a new BJJ point set to the identity element.
func New() ecc.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

func (g *BJJ) New() ecc.Point {
	return New()
}

func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(babyjubjub.SubOrder)
}

func (g *BJJ) Add(a, b ecc.Point) {
	g.inner = babyjubjub.NewPointProjective().
		Add(a.(*BJJ).inner.Projective(), b.(*BJJ).inner.Projective()).
		Affine()
}

func (g *BJJ) ScalarMult(a ecc.Point, scalar *big.Int) {
	g.inner = babyjubjub.NewPoint().Mul(scalar, a.(*BJJ).inner)
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.inner = babyjubjub.NewPoint().Mul(scalar, babyjubjub.B8)
}

// Neg sets the receiver to (-x, y).
func (g *BJJ) Neg(a ecc.Point) {
	src := a.(*BJJ).inner
	x := new(big.Int).Neg(src.X)
	x.Mod(x, constants.Q)
	g.inner = &babyjubjub.Point{X: x, Y: new(big.Int).Set(src.Y)}
}

func (g *BJJ) Equal(a ecc.Point) bool {
	other, ok := a.(*BJJ)
	if !ok {
		return false
	}
	return g.inner.X.Cmp(other.inner.X) == 0 && g.inner.Y.Cmp(other.inner.Y) == 0
}

func (g *BJJ) SetZero() {
	g.inner = babyjubjub.NewPoint()
}

func (g *BJJ) IsZero() bool {
	return g.inner.X.Sign() == 0 && g.inner.Y.Cmp(big.NewInt(1)) == 0
}

func (g *BJJ) Set(a ecc.Point) {
	src := a.(*BJJ).inner
	g.inner = &babyjubjub.Point{X: new(big.Int).Set(src.X), Y: new(big.Int).Set(src.Y)}
}

func (g *BJJ) SetGenerator() {
	g.inner = &babyjubjub.Point{
		X: new(big.Int).Set(babyjubjub.B8.X),
		Y: new(big.Int).Set(babyjubjub.B8.Y),
	}
}

// Marshal returns the 32 bytes compressed encoding.
func (g *BJJ) Marshal() []byte {
	b := g.inner.Compress()
	return b[:]
}

func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != 32 {
		return fmt.Errorf("invalid point size: got %d bytes, expected 32", len(buf))
	}
	var b32 [32]byte
	copy(b32[:], buf)
	p, err := babyjubjub.NewPoint().Decompress(b32)
	if err != nil {
		return fmt.Errorf("invalid point: %w", err)
	}
	if !p.InCurve() {
		return fmt.Errorf("point is not on the curve")
	}
	g.inner = p
	return nil
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	return new(big.Int).Set(g.inner.X), new(big.Int).Set(g.inner.Y)
}

func (g *BJJ) String() string {
	return fmt.Sprintf("%s,%s", g.inner.X.String(), g.inner.Y.String())
}

func (g *BJJ) Type() string {
	return CurveType
}
