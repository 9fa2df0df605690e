package elgamal

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ciphervote/crypto/ecc"
	"github.com/vocdoni/ciphervote/crypto/ecc/curves"
)

func TestGenerateKey(t *testing.T) {
	curve, err := curves.New(curves.CurveTypeBN254)
	qt.Assert(t, err, qt.IsNil)

	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, publicKey, qt.Not(qt.IsNil))
	qt.Assert(t, privateKey, qt.Not(qt.IsNil))

	// Check if publicKey = privateKey * G
	testPoint := curve.New()
	testPoint.SetGenerator()
	testPoint.ScalarMult(testPoint, privateKey)
	qt.Assert(t, testPoint.Equal(publicKey), qt.IsTrue)
}

func TestEncryptDecrypt(t *testing.T) {
	for _, curveType := range curves.Curves() {
		t.Run(curveType, func(t *testing.T) {
			curve, err := curves.New(curveType)
			qt.Assert(t, err, qt.IsNil)

			publicKey, privateKey, err := GenerateKey(curve)
			qt.Assert(t, err, qt.IsNil)

			maxMessage := uint64(1000)
			for _, m := range []uint64{0, 1, 42, 999, 1000} {
				msg := big.NewInt(int64(m))
				c1, c2, k, err := Encrypt(publicKey, msg)
				qt.Assert(t, err, qt.IsNil)
				qt.Assert(t, CheckK(c1, k), qt.IsTrue)

				M, recoveredMsg, err := Decrypt(privateKey, c1, c2, maxMessage)
				qt.Assert(t, err, qt.IsNil)
				qt.Assert(t, recoveredMsg.Uint64(), qt.Equals, m)

				// Check M = m * G
				testPoint := curve.New()
				testPoint.ScalarBaseMult(msg)
				qt.Assert(t, testPoint.Equal(M), qt.IsTrue)
			}
		})
	}
}

func TestDecryptOutOfRange(t *testing.T) {
	curve, err := curves.New(curves.CurveTypeBabyJubJub)
	qt.Assert(t, err, qt.IsNil)
	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	c1, c2, _, err := Encrypt(publicKey, big.NewInt(300))
	qt.Assert(t, err, qt.IsNil)
	_, _, err = Decrypt(privateKey, c1, c2, 255)
	qt.Assert(t, err, qt.ErrorMatches, `failed to find discrete log.*`)
}

func TestCiphertextMarshal(t *testing.T) {
	c := qt.New(t)
	curve, err := curves.New(curves.CurveTypeBabyJubJub)
	c.Assert(err, qt.IsNil)
	publicKey, _, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	ct, err := NewCiphertext(curve).Encrypt(big.NewInt(1), publicKey, nil)
	c.Assert(err, qt.IsNil)
	data := ct.Marshal()
	c.Assert(data, qt.HasLen, 64)

	decoded := NewCiphertext(curve)
	c.Assert(decoded.Unmarshal(data), qt.IsNil)
	c.Assert(decoded.C1.Equal(ct.C1), qt.IsTrue)
	c.Assert(decoded.C2.Equal(ct.C2), qt.IsTrue)
	c.Assert(decoded.String(), qt.Equals, ct.String())

	c.Assert(decoded.Unmarshal(data[:63]), qt.IsNotNil)
	c.Assert(decoded.Unmarshal(nil), qt.IsNotNil)
}

func TestEnvelopeHomomorphicSum(t *testing.T) {
	for _, curveType := range curves.Curves() {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)
			curve, err := curves.New(curveType)
			c.Assert(err, qt.IsNil)
			publicKey, privateKey, err := GenerateKey(curve)
			c.Assert(err, qt.IsNil)
			env := NewEnvelope(curve)

			acc, err := env.Zero()
			c.Assert(err, qt.IsNil)
			zero, err := env.Decode(acc)
			c.Assert(err, qt.IsNil)
			_, m, err := Decrypt(privateKey, zero.C1, zero.C2, 10)
			c.Assert(err, qt.IsNil)
			c.Assert(m.Uint64(), qt.Equals, uint64(0))

			for _, v := range []int64{1, 1, 0, 1, 3} {
				ct, err := NewCiphertext(curve).Encrypt(big.NewInt(v), publicKey, nil)
				c.Assert(err, qt.IsNil)
				acc, err = env.Add(acc, ct.Marshal())
				c.Assert(err, qt.IsNil)
			}
			sum, err := env.Decode(acc)
			c.Assert(err, qt.IsNil)
			_, m, err = Decrypt(privateKey, sum.C1, sum.C2, 255)
			c.Assert(err, qt.IsNil)
			c.Assert(m.Uint64(), qt.Equals, uint64(6))

			// adding zero keeps the plaintext
			zeroBytes, err := env.Zero()
			c.Assert(err, qt.IsNil)
			same, err := env.Add(acc, zeroBytes)
			c.Assert(err, qt.IsNil)
			c.Assert(same, qt.DeepEquals, acc)

			_, err = env.Add(acc, []byte{1, 2, 3})
			c.Assert(err, qt.IsNotNil)
		})
	}
}

func TestEncryptionProof(t *testing.T) {
	c := qt.New(t)
	curve, err := curves.New(curves.CurveTypeBabyJubJub)
	c.Assert(err, qt.IsNil)
	publicKey, _, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	one := big.NewInt(1)
	k, err := ecc.RandomScalar(curve)
	c.Assert(err, qt.IsNil)
	ct, err := NewCiphertext(curve).Encrypt(one, publicKey, k)
	c.Assert(err, qt.IsNil)

	ctx := []byte("session 1 option 2")
	proof, err := ProveEncryption(publicKey, ct, one, k, ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyEncryption(publicKey, ct, one, proof, ctx), qt.IsNil)

	// wrong plaintext
	err = VerifyEncryption(publicKey, ct, big.NewInt(2), proof, ctx)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
	// proof bound to another context
	err = VerifyEncryption(publicKey, ct, one, proof, []byte("session 1 option 0"))
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)
	// garbage
	err = VerifyEncryption(publicKey, ct, one, []byte{0xff, 0x00}, ctx)
	c.Assert(err, qt.ErrorIs, ErrInvalidProof)

	// a ciphertext of 2 cannot be proven as a ciphertext of 1
	ct2, err := NewCiphertext(curve).Encrypt(big.NewInt(2), publicKey, k)
	c.Assert(err, qt.IsNil)
	forged, err := ProveEncryption(publicKey, ct2, one, k, ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyEncryption(publicKey, ct2, one, forged, ctx), qt.ErrorIs, ErrInvalidProof)
}

func TestDecryptionProof(t *testing.T) {
	c := qt.New(t)
	curve, err := curves.New(curves.CurveTypeBN254)
	c.Assert(err, qt.IsNil)
	publicKey, privateKey, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	env := NewEnvelope(curve)

	acc, err := env.Zero()
	c.Assert(err, qt.IsNil)
	for i := 0; i < 3; i++ {
		ct, err := NewCiphertext(curve).Encrypt(big.NewInt(1), publicKey, nil)
		c.Assert(err, qt.IsNil)
		acc, err = env.Add(acc, ct.Marshal())
		c.Assert(err, qt.IsNil)
	}
	sum, err := env.Decode(acc)
	c.Assert(err, qt.IsNil)
	_, m, err := Decrypt(privateKey, sum.C1, sum.C2, 255)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Uint64(), qt.Equals, uint64(3))

	ctx := []byte("results")
	proof, err := ProveDecryption(privateKey, publicKey, sum, m, ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyDecryption(publicKey, sum, m, proof, ctx), qt.IsNil)
	c.Assert(VerifyDecryption(publicKey, sum, big.NewInt(4), proof, ctx), qt.ErrorIs, ErrInvalidProof)

	// the untouched zero accumulator also proves its zero count
	zero := NewCiphertext(curve)
	proof, err = ProveDecryption(privateKey, publicKey, zero, big.NewInt(0), ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyDecryption(publicKey, zero, big.NewInt(0), proof, ctx), qt.IsNil)
	c.Assert(VerifyDecryption(publicKey, zero, big.NewInt(1), proof, ctx), qt.ErrorIs, ErrInvalidProof)
}
