// Package elgamal implements additively homomorphic (exponential) ElGamal
// encryption over the curves of the ecc package, the opaque Envelope used to
// accumulate encrypted votes, and the Chaum-Pedersen proofs that bind a
// ciphertext or a decryption to a plaintext.
package elgamal

import (
	"fmt"
	"math"
	"math/big"

	"github.com/vocdoni/ciphervote/crypto/ecc"
)

// Encrypt function encrypts a message using the public key provided as
// elliptic curve point. It generates a random k and returns the two points
// that represent the encrypted message and the random k used to encrypt it.
// It returns an error if any.
func Encrypt(publicKey ecc.Point, msg *big.Int) (ecc.Point, ecc.Point, *big.Int, error) {
	k, err := ecc.RandomScalar(publicKey)
	if err != nil {
		return nil, nil, nil, err
	}
	c1, c2, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, nil, err
	}
	return c1, c2, k, nil
}

// EncryptWithK function encrypts a message using the public key provided as
// elliptic curve point and the random k value provided. It returns the two
// points that represent the encrypted message and error if any.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point, error) {
	if msg.Sign() < 0 {
		return nil, nil, fmt.Errorf("negative message")
	}
	m := new(big.Int).Mod(msg, pubKey.Order())
	// C1 = k * G
	c1 := pubKey.New()
	c1.ScalarBaseMult(k)
	// s = k * pubKey
	s := pubKey.New()
	s.ScalarMult(pubKey, k)
	// M = m * G
	mPoint := pubKey.New()
	mPoint.ScalarBaseMult(m)
	// C2 = M + s
	c2 := pubKey.New()
	c2.Add(mPoint, s)
	return c1, c2, nil
}

// GenerateKey generates a new public/private ElGamal encryption key pair.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	d, err := ecc.RandomScalar(curve)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	publicKey = curve.New()
	publicKey.ScalarBaseMult(d)
	return publicKey, d, nil
}

// Decrypt decrypts the given ciphertext (c1, c2) using the private key.
// It returns the point M = c2 - d*c1 and the discrete log message scalar,
// searched in [0, maxMessage]. If no solution is found, returns an error.
func Decrypt(privateKey *big.Int, c1, c2 ecc.Point, maxMessage uint64) (M ecc.Point, message *big.Int, err error) {
	M = DecryptPoint(privateKey, c1, c2)
	message, err = BabyStepGiantStepECC(M, ecc.Generator(c2), maxMessage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find discrete log: %w", err)
	}
	return M, message, nil
}

// DecryptPoint returns M = c2 - d*c1.
func DecryptPoint(privateKey *big.Int, c1, c2 ecc.Point) ecc.Point {
	dC1 := c2.New()
	dC1.ScalarMult(c1, privateKey)
	dC1.Neg(dC1)
	M := c2.New()
	M.Add(c2, dC1)
	return M
}

// BabyStepGiantStepECC solves M = x*G for x in [0, maxMessage]
// using the baby-step giant-step algorithm over elliptic curves.
func BabyStepGiantStepECC(M, G ecc.Point, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1

	babySteps := make(map[string]uint64, mSqrt)
	babyStep := M.New()
	babyStep.SetZero()
	for j := uint64(0); j < mSqrt; j++ {
		babySteps[babyStep.String()] = j
		babyStep.Add(babyStep, G)
	}

	// c = mSqrt * (-G)
	c := M.New()
	c.ScalarMult(G, new(big.Int).SetUint64(mSqrt))
	c.Neg(c)

	giantStep := M.New()
	giantStep.Set(M)
	for i := uint64(0); i <= mSqrt; i++ {
		if j, found := babySteps[giantStep.String()]; found {
			x := i*mSqrt + j
			if x > maxMessage {
				break
			}
			return new(big.Int).SetUint64(x), nil
		}
		giantStep.Add(giantStep, c)
	}
	return nil, fmt.Errorf("discrete logarithm not found in [0, %d]", maxMessage)
}

// CheckK reports whether k was used to produce c1, that is c1 == k * G.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	check := c1.New()
	check.ScalarBaseMult(k)
	return check.Equal(c1)
}
