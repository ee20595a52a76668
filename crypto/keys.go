package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable prefix bazaar addresses carry.
const AddressPrefix = "bzr"

// Address is a 20-byte account identifier rendered as bech32.
type Address struct {
	bytes [20]byte
}

// NewAddress wraps raw address bytes; b must be exactly 20 bytes.
func NewAddress(b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("crypto: address must be 20 bytes, got %d", len(b))
	}
	var addr Address
	copy(addr.bytes[:], b)
	return addr, nil
}

// MustAddress is NewAddress for fixed-size inputs.
func MustAddress(b [20]byte) Address {
	return Address{bytes: b}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns the raw 20-byte form.
func (a Address) Bytes() [20]byte {
	return a.bytes
}

// DecodeAddress parses a bech32 bazaar address.
func DecodeAddress(s string) (Address, error) {
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 string: %w", err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("crypto: unexpected address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: error converting bits: %w", err)
	}
	return NewAddress(conv)
}

// PrivateKey wraps a secp256k1 signing key.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// GeneratePrivateKey creates a fresh secp256k1 key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: key}, nil
}

// PubKeyAddress derives the bazaar address for the key's public half.
func (k *PrivateKey) PubKeyAddress() Address {
	raw := ethcrypto.PubkeyToAddress(k.PublicKey)
	var addr Address
	copy(addr.bytes[:], raw.Bytes())
	return addr
}
