package verifier

import (
	"encoding/hex"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/ciphervote/crypto/ecc/curves"
	"github.com/vocdoni/ciphervote/crypto/elgamal"
	"github.com/vocdoni/ciphervote/crypto/ethereum"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/storage"
)

// LoadTrustee returns the local trustee stored in stg. If there is none, a
// new one is created on curveType, signing with signingKey (hex) or with a
// random key if empty, and stored. Stored keys on another curve are an error,
// the existing accumulators could not be decrypted anymore.
func LoadTrustee(stg *storage.Storage, curveType, signingKey string, maxVotes uint64) (*Trustee, error) {
	curve, err := curves.New(curveType)
	if err != nil {
		return nil, err
	}
	keys, err := stg.VerifierKeys()
	switch {
	case err == nil:
		if keys.CurveType != curveType {
			return nil, fmt.Errorf("stored verifier keys are on curve %s, not %s", keys.CurveType, curveType)
		}
		signer := ethereum.NewSignKeys()
		if err := signer.AddHexKey(hex.EncodeToString(keys.SigningKey)); err != nil {
			return nil, fmt.Errorf("invalid stored signing key: %w", err)
		}
		if signingKey != "" {
			log.Warnw("verifier keys already stored, ignoring the configured signing key")
		}
		log.Infow("verifier keys loaded", "address", signer.AddressString(), "curve", curveType)
		return NewTrustee(curve, keys.EncryptionKey.MathBigInt(), signer, maxVotes), nil
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("cannot load verifier keys: %w", err)
	}

	signer := ethereum.NewSignKeys()
	if signingKey != "" {
		err = signer.AddHexKey(signingKey)
	} else {
		err = signer.Generate()
	}
	if err != nil {
		return nil, err
	}
	_, priv, err := elgamal.GenerateKey(curve)
	if err != nil {
		return nil, err
	}
	if err := stg.SetVerifierKeys(curveType, priv, ethcrypto.FromECDSA(&signer.Private)); err != nil {
		return nil, fmt.Errorf("cannot store verifier keys: %w", err)
	}
	log.Infow("verifier keys created", "address", signer.AddressString(), "curve", curveType)
	return NewTrustee(curve, priv, signer, maxVotes), nil
}
