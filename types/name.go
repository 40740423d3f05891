package types

import (
	"errors"
	"fmt"
	"strings"
)

const nameCharmap = ".12345abcdefghijklmnopqrstuvwxyz"

// MaxAccountNameLen is the longest textual form of an AccountName.
const MaxAccountNameLen = 13

var ErrInvalidAccountName = errors.New("invalid account name")

// AccountName is a 64-bit encoded account identifier. Up to 12 characters
// from [.1-5a-z] are packed 5 bits each, and an optional 13th character
// from [.1-5a-j] takes the low 4 bits.
type AccountName uint64

func charToSymbol(c byte) (uint64, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 6, true
	case c >= '1' && c <= '5':
		return uint64(c-'1') + 1, true
	case c == '.':
		return 0, true
	}
	return 0, false
}

// NewAccountName parses s. The name must use only valid characters and be
// in normalized form (no trailing dots).
func NewAccountName(s string) (AccountName, error) {
	if len(s) > MaxAccountNameLen {
		return 0, fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidAccountName, s, MaxAccountNameLen)
	}

	var value uint64
	for i := 0; i < len(s); i++ {
		sym, ok := charToSymbol(s[i])
		if !ok {
			return 0, fmt.Errorf("%w: %q contains invalid character %q", ErrInvalidAccountName, s, s[i])
		}
		if i < 12 {
			value |= (sym & 0x1f) << (64 - 5*(i+1))
			continue
		}
		if sym > 0x0f {
			return 0, fmt.Errorf("%w: thirteenth character of %q must be in [.1-5a-j]", ErrInvalidAccountName, s)
		}
		value |= sym
	}

	name := AccountName(value)
	if name.String() != s {
		return 0, fmt.Errorf("%w: %q is not normalized", ErrInvalidAccountName, s)
	}
	return name, nil
}

// MustAccountName is like NewAccountName but panics on error.
func MustAccountName(s string) AccountName {
	name, err := NewAccountName(s)
	if err != nil {
		panic(err)
	}
	return name
}

// IsEmpty reports whether n is the empty name.
func (n AccountName) IsEmpty() bool { return n == 0 }

func (n AccountName) String() string {
	var str [MaxAccountNameLen]byte
	tmp := uint64(n)
	for i := 0; i < MaxAccountNameLen; i++ {
		if i == 0 {
			str[12-i] = nameCharmap[tmp&0x0f]
			tmp >>= 4
		} else {
			str[12-i] = nameCharmap[tmp&0x1f]
			tmp >>= 5
		}
	}
	return strings.TrimRight(string(str[:]), ".")
}

func (n AccountName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *AccountName) UnmarshalText(text []byte) error {
	name, err := NewAccountName(string(text))
	if err != nil {
		return err
	}
	*n = name
	return nil
}
