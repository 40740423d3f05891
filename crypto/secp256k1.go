package crypto

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
)

var (
	ErrInvalidPrivKey      = errors.New("invalid private key")
	ErrSignatureRecovery   = errors.New("unable to recover public key from signature")
	ErrMalleableSignature  = errors.New("signature is not in lower-S form")
	ErrInvalidRecoveryByte = errors.New("invalid signature recovery byte")
)

// used to reject malleable signatures
// see:
//  - https://github.com/ethereum/go-ethereum/blob/f9401ae011ddf7f8d2d95020b7446c17f8d98dc1/crypto/signature_nocgo.go#L90-L93
var (
	secp256k1N, _  = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
	secp256k1halfN = new(big.Int).Div(secp256k1N, big.NewInt(2))
)

// SignatureRecoverer yields the public key that produced a signature over a
// digest. Block validation feeds the recovered keys into the signing
// authority of the block's master.
type SignatureRecoverer interface {
	RecoverPubKey(digest Checksum256, sig Signature) (PubKey, error)
}

// Secp256k1Recoverer recovers keys from compact secp256k1 signatures.
type Secp256k1Recoverer struct{}

var _ SignatureRecoverer = Secp256k1Recoverer{}

// RecoverPubKey implements SignatureRecoverer.
func (Secp256k1Recoverer) RecoverPubKey(digest Checksum256, sig Signature) (PubKey, error) {
	return RecoverPubKey(digest, sig)
}

// RecoverPubKey recovers the compressed public key from a compact signature.
func RecoverPubKey(digest Checksum256, sig Signature) (PubKey, error) {
	var pk PubKey

	// 27 + recovery id, +4 when the signing key was compressed
	if sig[0] < 27 || sig[0] > 34 {
		return pk, fmt.Errorf("%w: %d", ErrInvalidRecoveryByte, sig[0])
	}
	// Reject malleable signatures. libsecp256k1 does this check but btcec doesn't.
	if new(big.Int).SetBytes(sig[33:]).Cmp(secp256k1halfN) > 0 {
		return pk, ErrMalleableSignature
	}

	pub, _, err := btcec.RecoverCompact(btcec.S256(), sig[:], digest[:])
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
	}
	copy(pk[:], pub.SerializeCompressed())
	return pk, nil
}

// PrivKey is a secp256k1 private key used by masters to sign block headers.
type PrivKey struct {
	key *btcec.PrivateKey
}

// GenPrivKey generates a new random private key.
func GenPrivKey() (PrivKey, error) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return PrivKey{}, err
	}
	return PrivKey{key: key}, nil
}

// PrivKeyFromBytes builds a private key from its 32 byte scalar.
func PrivKeyFromBytes(bz []byte) (PrivKey, error) {
	if len(bz) != btcec.PrivKeyBytesLen {
		return PrivKey{}, fmt.Errorf("%w: length %d", ErrInvalidPrivKey, len(bz))
	}
	key, _ := btcec.PrivKeyFromBytes(btcec.S256(), bz)
	return PrivKey{key: key}, nil
}

// PrivKeyFromString parses a WIF encoded private key.
func PrivKeyFromString(s string) (PrivKey, error) {
	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		return PrivKey{}, fmt.Errorf("%w: %v", ErrInvalidPrivKey, err)
	}
	return PrivKey{key: wif.PrivKey}, nil
}

// Bytes returns the 32 byte scalar.
func (k PrivKey) Bytes() []byte {
	return k.key.Serialize()
}

// PubKey returns the compressed public key.
func (k PrivKey) PubKey() PubKey {
	var pk PubKey
	copy(pk[:], k.key.PubKey().SerializeCompressed())
	return pk
}

// Sign produces a compact recoverable signature over digest.
func (k PrivKey) Sign(digest Checksum256) (Signature, error) {
	var sig Signature
	bz, err := btcec.SignCompact(btcec.S256(), k.key, digest[:], true)
	if err != nil {
		return sig, err
	}
	copy(sig[:], bz)
	return sig, nil
}

// String renders the key in WIF, the format accepted by PrivKeyFromString.
func (k PrivKey) String() string {
	wif, err := btcutil.NewWIF(k.key, &chaincfg.MainNetParams, false)
	if err != nil {
		panic(err)
	}
	return wif.String()
}
