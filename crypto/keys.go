package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

const (
	// PubKeySize is the size of a compressed secp256k1 public key.
	PubKeySize = 33
	// SignatureSize is the size of a compact recoverable signature:
	// one recovery byte followed by R and S.
	SignatureSize = 65

	// PubKeyPrefix is the legacy text prefix of a public key.
	PubKeyPrefix = "INE"
	// PubKeyK1Prefix is the typed text prefix of a secp256k1 public key.
	PubKeyK1Prefix = "PUB_K1_"
	// SignatureK1Prefix is the text prefix of a secp256k1 signature.
	SignatureK1Prefix = "SIG_K1_"

	checksumSize = 4
	k1Suffix     = "K1"
)

var (
	ErrInvalidKeyFormat       = errors.New("invalid public key format")
	ErrInvalidSignatureFormat = errors.New("invalid signature format")
	ErrChecksumMismatch       = errors.New("checksum mismatch")
)

// PubKey is a compressed secp256k1 public key. It is comparable and can be
// used as a map key.
type PubKey [PubKeySize]byte

// Signature is a compact recoverable secp256k1 signature.
type Signature [SignatureSize]byte

func ripemdChecksum(parts ...[]byte) []byte {
	h := ripemd160.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)[:checksumSize]
}

// IsZero reports whether the key is unset.
func (pk PubKey) IsZero() bool {
	return pk == PubKey{}
}

// Compare orders keys by their byte representation.
func (pk PubKey) Compare(other PubKey) int {
	return bytes.Compare(pk[:], other[:])
}

// String renders the key in the legacy INE format.
func (pk PubKey) String() string {
	return PubKeyPrefix + base58.Encode(append(pk[:], ripemdChecksum(pk[:])...))
}

// PubKeyFromString parses either the legacy INE form or the PUB_K1_ form.
func PubKeyFromString(s string) (PubKey, error) {
	var (
		pk     PubKey
		suffix []byte
		body   string
	)
	switch {
	case strings.HasPrefix(s, PubKeyK1Prefix):
		body = strings.TrimPrefix(s, PubKeyK1Prefix)
		suffix = []byte(k1Suffix)
	case strings.HasPrefix(s, PubKeyPrefix):
		body = strings.TrimPrefix(s, PubKeyPrefix)
	default:
		return pk, fmt.Errorf("%w: unknown prefix in %q", ErrInvalidKeyFormat, s)
	}

	raw := base58.Decode(body)
	if len(raw) != PubKeySize+checksumSize {
		return pk, fmt.Errorf("%w: decoded length %d", ErrInvalidKeyFormat, len(raw))
	}
	if !bytes.Equal(ripemdChecksum(raw[:PubKeySize], suffix), raw[PubKeySize:]) {
		return pk, fmt.Errorf("%w: public key %q", ErrChecksumMismatch, s)
	}
	copy(pk[:], raw[:PubKeySize])
	return pk, nil
}

// MustPubKeyFromString parses s and panics on error. Use only for trusted
// literals.
func MustPubKeyFromString(s string) PubKey {
	pk, err := PubKeyFromString(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (pk PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PubKey) UnmarshalText(text []byte) error {
	parsed, err := PubKeyFromString(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// IsZero reports whether the signature is unset.
func (sig Signature) IsZero() bool {
	return sig == Signature{}
}

func (sig Signature) String() string {
	return SignatureK1Prefix + base58.Encode(append(sig[:], ripemdChecksum(sig[:], []byte(k1Suffix))...))
}

// SignatureFromString parses the SIG_K1_ form.
func SignatureFromString(s string) (Signature, error) {
	var sig Signature
	if !strings.HasPrefix(s, SignatureK1Prefix) {
		return sig, fmt.Errorf("%w: unknown prefix in %q", ErrInvalidSignatureFormat, s)
	}
	raw := base58.Decode(strings.TrimPrefix(s, SignatureK1Prefix))
	if len(raw) != SignatureSize+checksumSize {
		return sig, fmt.Errorf("%w: decoded length %d", ErrInvalidSignatureFormat, len(raw))
	}
	if !bytes.Equal(ripemdChecksum(raw[:SignatureSize], []byte(k1Suffix)), raw[SignatureSize:]) {
		return sig, fmt.Errorf("%w: signature", ErrChecksumMismatch)
	}
	copy(sig[:], raw[:SignatureSize])
	return sig, nil
}

func (sig Signature) MarshalText() ([]byte, error) {
	return []byte(sig.String()), nil
}

func (sig *Signature) UnmarshalText(text []byte) error {
	parsed, err := SignatureFromString(string(text))
	if err != nil {
		return err
	}
	*sig = parsed
	return nil
}
