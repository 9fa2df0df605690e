package elgamal

import (
	"fmt"

	"github.com/vocdoni/ciphervote/crypto/ecc"
)

// Envelope exposes the additive homomorphism of ElGamal ciphertexts over
// opaque byte encodings, so callers can accumulate encrypted votes without
// knowing the underlying curve.
type Envelope struct {
	curve ecc.Point
}

// NewEnvelope returns an Envelope working on the curve of the given point.
func NewEnvelope(curve ecc.Point) *Envelope {
	return &Envelope{curve: curve.New()}
}

// Curve returns a new identity point of the envelope curve.
func (e *Envelope) Curve() ecc.Point {
	return e.curve.New()
}

// Zero returns the encoding of the encryption of zero with a zero nonce,
// the neutral element of Add.
func (e *Envelope) Zero() ([]byte, error) {
	return NewCiphertext(e.curve).Marshal(), nil
}

// Add returns the encoding of the homomorphic sum of a and b. The result
// decrypts to the sum of the plaintexts of a and b.
func (e *Envelope) Add(a, b []byte) ([]byte, error) {
	x, err := e.Decode(a)
	if err != nil {
		return nil, err
	}
	y, err := e.Decode(b)
	if err != nil {
		return nil, err
	}
	return NewCiphertext(e.curve).Add(x, y).Marshal(), nil
}

// Decode parses an encoded ciphertext of the envelope curve.
func (e *Envelope) Decode(data []byte) (*Ciphertext, error) {
	ct := NewCiphertext(e.curve)
	if err := ct.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("cannot decode ciphertext: %w", err)
	}
	return ct, nil
}
