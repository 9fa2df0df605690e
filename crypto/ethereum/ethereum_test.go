package ethereum

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSignKeysGeneration(t *testing.T) {
	c := qt.New(t)
	t.Parallel()

	s := NewSignKeys()
	c.Assert(s.Generate(), qt.IsNil)

	pub, priv := s.HexString()
	c.Assert(pub, qt.Not(qt.Equals), "")
	c.Assert(priv, qt.Not(qt.Equals), "")

	// Test key import
	imported := NewSignKeys()
	c.Assert(imported.AddHexKey("0x"+priv), qt.IsNil)

	importedPub, importedPriv := imported.HexString()
	c.Assert(importedPub, qt.Equals, pub)
	c.Assert(importedPriv, qt.Equals, priv)
	c.Assert(imported.Address(), qt.Equals, s.Address())

	c.Assert(NewSignKeys().AddHexKey("zz"), qt.IsNotNil)
	_, err := NewSignKeys().SignEthereum([]byte("hello"))
	c.Assert(err, qt.IsNotNil)
}

func TestAddressRecovery(t *testing.T) {
	c := qt.New(t)
	t.Parallel()

	testCases := []struct {
		name    string
		message []byte
	}{
		{
			name:    "simple message",
			message: []byte("hello ciphervote"),
		},
		{
			name:    "binary message",
			message: []byte{0x00, 0x01, 0xfe, 0xff},
		},
	}

	s := NewSignKeys()
	c.Assert(s.Generate(), qt.IsNil)

	expectedAddr, err := AddrFromPublicKey(s.PublicKey())
	c.Assert(err, qt.IsNil)
	c.Assert(expectedAddr.String(), qt.Equals, s.AddressString())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := qt.New(t)

			signature, err := s.SignEthereum(tc.message)
			c.Assert(err, qt.IsNil)
			c.Assert(signature, qt.HasLen, SignatureLength)

			recoveredAddr, err := AddrFromSignature(tc.message, signature)
			c.Assert(err, qt.IsNil)
			c.Assert(recoveredAddr, qt.Equals, expectedAddr)

			// V in the 27/28 form is accepted too
			signature[64] += 27
			recoveredAddr, err = AddrFromSignature(tc.message, signature)
			c.Assert(err, qt.IsNil)
			c.Assert(recoveredAddr, qt.Equals, expectedAddr)

			// another message recovers another address
			other, err := AddrFromSignature([]byte("tampered"), signature)
			if err == nil {
				c.Assert(other, qt.Not(qt.Equals), expectedAddr)
			}
		})
	}

	_, err = AddrFromSignature([]byte("x"), []byte{1, 2, 3})
	c.Assert(err, qt.ErrorMatches, `invalid signature length.*`)
}
