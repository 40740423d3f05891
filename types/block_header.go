package types

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/inery/inery/crypto"
)

// DefaultConfirmed is the confirmation count of a header that vouches only
// for its parent.
const DefaultConfirmed = 1

var (
	ErrEmptyMaster             = errors.New("header master is empty")
	ErrBlockNumOverflow        = errors.New("previous block id is the last representable block")
	ErrTooManyConfirmed        = errors.New("header confirms more blocks than precede it")
	ErrMultipleLegacySchedules = errors.New("header carries more than one legacy schedule")
)

// BlockID identifies a block: the header digest with the first four bytes
// replaced by the big-endian block number.
type BlockID crypto.Checksum256

// NumFromID returns the block number encoded in id.
func NumFromID(id BlockID) uint32 {
	return binary.BigEndian.Uint32(id[:4])
}

// IsZero reports whether id is all zero bytes.
func (id BlockID) IsZero() bool { return id == BlockID{} }

// BlockNum returns the block number encoded in id.
func (id BlockID) BlockNum() uint32 { return NumFromID(id) }

func (id BlockID) String() string { return hex.EncodeToString(id[:]) }

func (id BlockID) MarshalText() ([]byte, error) {
	return crypto.Checksum256(id).MarshalText()
}

func (id *BlockID) UnmarshalText(text []byte) error {
	return (*crypto.Checksum256)(id).UnmarshalText(text)
}

// Extension is a raw header extension: an id and its encoded payload.
type Extension struct {
	Type uint16 `serialize:"true"`
	Data []byte `serialize:"true"`
}

// MarshalJSON encodes the extension as [type, "hex data"].
func (e Extension) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Type, hex.EncodeToString(e.Data)})
}

func (e *Extension) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("extension must be a [type, data] pair: %w", err)
	}
	var (
		typ uint16
		hx  string
	)
	if err := json.Unmarshal(raw[0], &typ); err != nil {
		return fmt.Errorf("extension type: %w", err)
	}
	if err := json.Unmarshal(raw[1], &hx); err != nil {
		return fmt.Errorf("extension data: %w", err)
	}
	bz, err := hex.DecodeString(hx)
	if err != nil {
		return fmt.Errorf("extension data: %w", err)
	}
	e.Type, e.Data = typ, bz
	return nil
}

// BlockHeader is the metadata a master signs for every block. The block
// number and id are derived from the header and never stored.
//
// NOTE: field order is the wire order; the digest covers every field.
type BlockHeader struct {
	Timestamp        BlockTimestamp     `serialize:"true" json:"timestamp"`
	Master           AccountName        `serialize:"true" json:"master"`
	Confirmed        uint16             `serialize:"true" json:"confirmed"`
	Previous         BlockID            `serialize:"true" json:"previous"`
	TransactionMRoot crypto.Checksum256 `serialize:"true" json:"transaction_mroot"`
	ActionMRoot      crypto.Checksum256 `serialize:"true" json:"action_mroot"`

	// ScheduleVersion and NewMasters are the legacy schedule fields. They
	// are only valid before the extension based schedule change is active.
	// NewMasters holds at most one schedule.
	ScheduleVersion uint32                 `serialize:"true" json:"schedule_version"`
	NewMasters      []LegacyMasterSchedule `serialize:"true" json:"new_masters,omitempty"`

	HeaderExtensions []Extension `serialize:"true" json:"header_extensions"`
}

// BlockNum returns the number of this block, one past the block it links to.
func (h *BlockHeader) BlockNum() uint32 {
	return NumFromID(h.Previous) + 1
}

// Bytes returns the canonical encoding of the header.
func (h *BlockHeader) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, h)
}

// Digest returns the sha256 of the canonical header encoding.
func (h *BlockHeader) Digest() crypto.Checksum256 {
	bz, err := h.Bytes()
	if err != nil {
		// Every header field has a fixed codec type.
		panic(fmt.Errorf("encoding block header: %w", err))
	}
	return crypto.Sha256(bz)
}

// ID returns the block id.
func (h *BlockHeader) ID() BlockID {
	id := BlockID(h.Digest())
	binary.BigEndian.PutUint32(id[:4], h.BlockNum())
	return id
}

// LegacySchedule returns the legacy schedule carried in NewMasters.
func (h *BlockHeader) LegacySchedule() (LegacyMasterSchedule, bool) {
	if len(h.NewMasters) == 0 {
		return LegacyMasterSchedule{}, false
	}
	return h.NewMasters[0], true
}

// SetLegacySchedule replaces the legacy schedule.
func (h *BlockHeader) SetLegacySchedule(s LegacyMasterSchedule) {
	h.NewMasters = []LegacyMasterSchedule{s}
}

// ValidateBasic performs checks that need no chain state.
func (h *BlockHeader) ValidateBasic() error {
	if h.Master.IsEmpty() {
		return ErrEmptyMaster
	}
	if NumFromID(h.Previous) == math.MaxUint32 {
		return ErrBlockNumOverflow
	}
	if uint32(h.Confirmed) >= h.BlockNum() {
		return fmt.Errorf("%w: confirmed %d at block %d", ErrTooManyConfirmed, h.Confirmed, h.BlockNum())
	}
	if len(h.NewMasters) > 1 {
		return ErrMultipleLegacySchedules
	}
	if legacy, ok := h.LegacySchedule(); ok && len(legacy.Masters) > MaxMasters {
		return fmt.Errorf("legacy schedule: %w", ErrTooManyMasters)
	}
	return nil
}

// EmplaceExtension encodes ext and appends it to the header extensions.
func (h *BlockHeader) EmplaceExtension(ext HeaderExtension) error {
	id := ext.ExtensionID()
	unique, known := HeaderExtensionEnforcesUnique(id)
	if !known {
		return fmt.Errorf("%w: id %d", ErrUnknownHeaderExtension, id)
	}
	if unique {
		for _, e := range h.HeaderExtensions {
			if e.Type == id {
				return fmt.Errorf("%w: id %d", ErrDuplicateHeaderExtension, id)
			}
		}
	}
	data, err := Codec.Marshal(CodecVersion, ext)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", HeaderExtensionName(id), err)
	}
	h.HeaderExtensions = append(h.HeaderExtensions, Extension{Type: id, Data: data})
	return nil
}

// ValidateAndExtractHeaderExtensions decodes every header extension. Unknown
// ids, payloads that fail to decode and repeated unique ids fail the whole
// header. The result is ordered by id; entries sharing an id keep their
// header order.
func (h *BlockHeader) ValidateAndExtractHeaderExtensions() (HeaderExtensions, error) {
	exts := make(HeaderExtensions, 0, len(h.HeaderExtensions))
	seen := make(map[uint16]struct{}, len(h.HeaderExtensions))
	for i, raw := range h.HeaderExtensions {
		entry, ok := headerExtensionRegistry[raw.Type]
		if !ok {
			return nil, fmt.Errorf("%w: id %d at index %d", ErrUnknownHeaderExtension, raw.Type, i)
		}
		if _, dup := seen[raw.Type]; dup && entry.enforceUnique {
			return nil, fmt.Errorf("%w: %s at index %d", ErrDuplicateHeaderExtension, entry.name, i)
		}
		ext, err := entry.decode(raw.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s at index %d: %w", ErrMalformedHeaderExtension, entry.name, i, err)
		}
		seen[raw.Type] = struct{}{}
		exts = append(exts, HeaderExtensionEntry{ID: raw.Type, Extension: ext})
	}
	sort.SliceStable(exts, func(i, j int) bool { return exts[i].ID < exts[j].ID })
	return exts, nil
}

func (h *BlockHeader) String() string {
	if h == nil {
		return "nil-BlockHeader"
	}
	return fmt.Sprintf("BlockHeader{#%d %v by %v prev:%v exts:%d}",
		h.BlockNum(), h.Timestamp, h.Master, h.Previous, len(h.HeaderExtensions))
}

//-----------------------------------------------------------------------------

// SignedBlockHeader is a header with the master's signature over its digest.
type SignedBlockHeader struct {
	BlockHeader     `serialize:"true"`
	MasterSignature crypto.Signature `serialize:"true" json:"master_signature"`
}

// Sign signs the header digest with priv.
func (sh *SignedBlockHeader) Sign(priv crypto.PrivKey) error {
	sig, err := priv.Sign(sh.Digest())
	if err != nil {
		return err
	}
	sh.MasterSignature = sig
	return nil
}

// Bytes returns the canonical encoding of the header and its signature.
func (sh *SignedBlockHeader) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, sh)
}

// SignedBlockHeaderFromBytes decodes a signed header.
func SignedBlockHeaderFromBytes(bz []byte) (*SignedBlockHeader, error) {
	sh := new(SignedBlockHeader)
	if err := unmarshalExact(bz, sh); err != nil {
		return nil, err
	}
	return sh, nil
}
