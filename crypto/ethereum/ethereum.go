// Package ethereum wraps go-ethereum secp256k1 keys to sign and recover
// the addresses that identify session creators, voters and verifiers.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of a recoverable signature [R || S || V].
const SignatureLength = ethcrypto.SignatureLength

// SignKeys holds a secp256k1 key pair.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys returns an empty SignKeys, use Generate or AddHexKey to set it up.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a new random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a hex encoded private key, with or without 0x prefix.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key, both hex
// encoded without prefix.
func (k *SignKeys) HexString() (string, string) {
	pub := hex.EncodeToString(ethcrypto.CompressPubkey(&k.Public))
	priv := hex.EncodeToString(ethcrypto.FromECDSA(&k.Private))
	return pub, priv
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address of the key pair.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed hex address.
func (k *SignKeys) AddressString() string {
	return k.Address().Hex()
}

// SignEthereum signs the message using the Ethereum personal message
// prefix and returns the 65 bytes signature.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(accounts.TextHash(message), &k.Private)
}

// AddrFromSignature recovers the address of the signer of the message.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// AddrFromPublicKey returns the address of a compressed or uncompressed
// public key.
func AddrFromPublicKey(pubKey []byte) (common.Address, error) {
	var (
		pub *ecdsa.PublicKey
		err error
	)
	if len(pubKey) == 33 {
		pub, err = ethcrypto.DecompressPubkey(pubKey)
	} else {
		pub, err = ethcrypto.UnmarshalPubkey(pubKey)
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// HashRaw returns the keccak256 hash of data.
func HashRaw(data ...[]byte) []byte {
	return ethcrypto.Keccak256(data...)
}
