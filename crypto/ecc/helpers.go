package ecc

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// BigToFF function returns the finite field representation of the big.Int
// provided. It uses the curve scalar field to represent the provided number.
func BigToFF(baseField, iv *big.Int) *big.Int {
	z := big.NewInt(0)
	if c := iv.Cmp(baseField); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, baseField)
}

// RandomScalar returns a uniformly random non-zero scalar modulo the order
// of the curve group.
func RandomScalar(curve Point) (*big.Int, error) {
	order := curve.Order()
	for {
		k, err := rand.Int(rand.Reader, order)
		if err != nil {
			return nil, fmt.Errorf("failed to generate random scalar: %w", err)
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
}

// InSubgroup reports whether p belongs to the prime order subgroup, that is
// order*p is the identity.
func InSubgroup(p Point) bool {
	q := p.New()
	q.ScalarMult(p, p.Order())
	return q.IsZero()
}

// Generator returns a new point set to the generator of the curve of p.
func Generator(p Point) Point {
	g := p.New()
	g.SetGenerator()
	return g
}
