package elgamal

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/ciphervote/crypto/ecc"
)

// Ciphertext represents an ElGamal encrypted message with homomorphic properties.
// It is a wrapper for convenience of the elGamal ciphersystem that encapsulates the two points of a ciphertext.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a new Ciphertext on the same curve as the given Point,
// set to the encryption of zero with a zero nonce (both points at identity).
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Encrypt encrypts a message using the public key provided as elliptic curve point.
// The randomness k can be provided or nil to generate a new one.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		if k, err = ecc.RandomScalar(publicKey); err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	c1, c2, err := EncryptWithK(publicKey, message, k)
	if err != nil {
		return nil, fmt.Errorf("elgamal encryption failed: %w", err)
	}
	z.C1 = c1
	z.C2 = c2
	return z, nil
}

// Add adds two Ciphertext and stores the result in z, which is also returned.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.Add(x.C1, y.C1)
	z.C2.Add(x.C2, y.C2)
	return z
}

// Marshal returns the concatenation of the encoded C1 and C2 points.
func (z *Ciphertext) Marshal() []byte {
	return append(z.C1.Marshal(), z.C2.Marshal()...)
}

// Unmarshal decodes a ciphertext produced by Marshal. The receiver points
// determine the curve. Both points must belong to the prime order subgroup.
func (z *Ciphertext) Unmarshal(data []byte) error {
	if len(data) == 0 || len(data)%2 != 0 {
		return fmt.Errorf("invalid ciphertext length %d", len(data))
	}
	half := len(data) / 2
	c1, c2 := z.C1.New(), z.C2.New()
	if err := c1.Unmarshal(data[:half]); err != nil {
		return fmt.Errorf("invalid C1: %w", err)
	}
	if err := c2.Unmarshal(data[half:]); err != nil {
		return fmt.Errorf("invalid C2: %w", err)
	}
	if !ecc.InSubgroup(c1) || !ecc.InSubgroup(c2) {
		return fmt.Errorf("ciphertext points are not in the prime order subgroup")
	}
	z.C1, z.C2 = c1, c2
	return nil
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	if z == nil || z.C1 == nil || z.C2 == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1.String(), z.C2.String())
}
