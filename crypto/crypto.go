package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// Checksum256Size is the size in bytes of a digest.
	Checksum256Size = sha256.Size
)

// Checksum256 is a SHA-256 digest. It is hex-encoded in JSON.
type Checksum256 [Checksum256Size]byte

// Sha256 hashes the concatenation of the given byte slices.
func Sha256(bzs ...[]byte) Checksum256 {
	h := sha256.New()
	for _, bz := range bzs {
		h.Write(bz)
	}
	var sum Checksum256
	copy(sum[:], h.Sum(nil))
	return sum
}

// Checksum256FromHex parses a 64 character hex string.
func Checksum256FromHex(s string) (Checksum256, error) {
	var c Checksum256
	bz, err := hex.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("invalid checksum hex: %w", err)
	}
	if len(bz) != Checksum256Size {
		return c, fmt.Errorf("invalid checksum length; got: %d, expected: %d", len(bz), Checksum256Size)
	}
	copy(c[:], bz)
	return c, nil
}

// IsZero reports whether every byte of c is zero.
func (c Checksum256) IsZero() bool {
	return c == Checksum256{}
}

// Bytes returns a copy of the digest bytes.
func (c Checksum256) Bytes() []byte {
	bz := make([]byte, Checksum256Size)
	copy(bz, c[:])
	return bz
}

func (c Checksum256) String() string {
	return hex.EncodeToString(c[:])
}

// MarshalText encodes the digest as lowercase hex.
func (c Checksum256) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a hex digest.
func (c *Checksum256) UnmarshalText(text []byte) error {
	parsed, err := Checksum256FromHex(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
