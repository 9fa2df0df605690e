package storage

import (
	"math/big"

	"github.com/vocdoni/ciphervote/types"
)

var (
	keysPrefix     = []byte("k/")
	verifierKeyKey = []byte("verifier")
)

// VerifierKeys are the keys of the local verifier: the ElGamal private key
// on the given curve and the secp256k1 signing key. Accumulators can only be
// decrypted with the key they were encrypted to, so they must survive
// restarts.
type VerifierKeys struct {
	CurveType     string         `cbor:"0,keyasint"`
	EncryptionKey *types.BigInt  `cbor:"1,keyasint"`
	SigningKey    types.HexBytes `cbor:"2,keyasint"`
}

// SetVerifierKeys stores the local verifier keys.
func (s *Storage) SetVerifierKeys(curveType string, encryptionKey *big.Int, signingKey []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	wTx := s.db.WriteTx()
	err := setArtifact(wTx, keysPrefix, verifierKeyKey, &VerifierKeys{
		CurveType:     curveType,
		EncryptionKey: types.NewBigInt(encryptionKey),
		SigningKey:    signingKey,
	})
	return commit(wTx, err)
}

// VerifierKeys loads the local verifier keys. Returns ErrNotFound if the
// keys do not exist.
func (s *Storage) VerifierKeys() (*VerifierKeys, error) {
	keys := &VerifierKeys{}
	if err := s.getArtifact(s.db, keysPrefix, verifierKeyKey, keys); err != nil {
		return nil, err
	}
	return keys, nil
}
