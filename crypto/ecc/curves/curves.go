// Package curves selects an ecc.Point implementation by name.
package curves

import (
	"fmt"

	"github.com/vocdoni/ciphervote/crypto/ecc"
	bjj_gnark "github.com/vocdoni/ciphervote/crypto/ecc/bjj_gnark"
	bjj_iden3 "github.com/vocdoni/ciphervote/crypto/ecc/bjj_iden3"
	"github.com/vocdoni/ciphervote/crypto/ecc/bn254"
)

const (
	CurveTypeBabyJubJub      = bjj_gnark.CurveType // default curve type
	CurveTypeBabyJubJubGnark = bjj_gnark.CurveType
	CurveTypeBabyJubJubIden3 = bjj_iden3.CurveType
	CurveTypeBN254           = bn254.CurveType
)

// New returns a new point, set to the identity, of the given curve type.
func New(curveType string) (ecc.Point, error) {
	switch curveType {
	case CurveTypeBabyJubJubGnark:
		return bjj_gnark.New(), nil
	case CurveTypeBabyJubJubIden3:
		return bjj_iden3.New(), nil
	case CurveTypeBN254:
		return bn254.New(), nil
	default:
		return nil, fmt.Errorf("unsupported curve type: %q", curveType)
	}
}

// Curves returns the list of supported curve types.
func Curves() []string {
	return []string{CurveTypeBabyJubJubGnark, CurveTypeBabyJubJubIden3, CurveTypeBN254}
}

// IsValid reports whether curveType is supported.
func IsValid(curveType string) bool {
	for _, c := range Curves() {
		if c == curveType {
			return true
		}
	}
	return false
}
