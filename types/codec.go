package types

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

// CodecVersion is the version prefix written in front of every encoded
// header, schedule and extension payload.
const CodecVersion = 0

// MaxCodecSliceLen bounds every length prefix the codec accepts, and so the
// allocation a single prefix can cause. It covers MaxMasters, the keys of an
// authority, the features of a block and an extension payload in bytes.
const MaxCodecSliceLen = 1 << 16

// ErrTrailingBytes is returned when an encoding holds more bytes than the
// value decoded from it.
var ErrTrailingBytes = errors.New("trailing bytes after encoded value")

// Codec is the canonical binary codec. Field order follows the declared
// struct order of every `serialize:"true"` field.
var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.New(MaxCodecSliceLen)

	// Registration order fixes the wire tag of each authority variant.
	// New variants are appended, never inserted.
	err := errors.Join(
		lc.RegisterType(&BlockSigningAuthorityV0{}),
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}

// unmarshalExact decodes bz into dst and fails unless bz is exactly the
// canonical encoding of the decoded value.
func unmarshalExact(bz []byte, dst interface{}) error {
	if _, err := Codec.Unmarshal(bz, dst); err != nil {
		return err
	}
	size, err := Codec.Size(CodecVersion, dst)
	if err != nil {
		return err
	}
	if size != len(bz) {
		return fmt.Errorf("%w: %d of %d bytes used", ErrTrailingBytes, size, len(bz))
	}
	return nil
}
