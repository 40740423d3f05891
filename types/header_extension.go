package types

import (
	"errors"
	"fmt"
	"sort"

	"github.com/inery/inery/crypto"
)

// Header extension ids.
const (
	ProtocolFeatureActivationID     uint16 = 0
	MasterScheduleChangeExtensionID uint16 = 1
)

var (
	ErrUnknownHeaderExtension   = errors.New("unknown header extension")
	ErrMalformedHeaderExtension = errors.New("malformed header extension")
	ErrDuplicateHeaderExtension = errors.New("duplicate header extension")
)

// HeaderExtension is a typed payload carried in BlockHeader.HeaderExtensions.
// The set of extensions is closed; see headerExtensionRegistry.
type HeaderExtension interface {
	ExtensionID() uint16
	isHeaderExtension()
}

type headerExtensionEntry struct {
	name          string
	enforceUnique bool
	decode        func([]byte) (HeaderExtension, error)
}

// headerExtensionRegistry maps every known extension id to its decoder.
// Adding an extension means adding a type and an entry here.
var headerExtensionRegistry = map[uint16]headerExtensionEntry{
	ProtocolFeatureActivationID: {
		name:          "protocol_feature_activation",
		enforceUnique: true,
		decode:        decodeHeaderExtension[ProtocolFeatureActivation],
	},
	MasterScheduleChangeExtensionID: {
		name:          "master_schedule_change_extension",
		enforceUnique: true,
		decode:        decodeHeaderExtension[MasterScheduleChangeExtension],
	},
}

func decodeHeaderExtension[T any, PT interface {
	*T
	HeaderExtension
}](data []byte) (HeaderExtension, error) {
	ext := PT(new(T))
	if err := unmarshalExact(data, ext); err != nil {
		return nil, err
	}
	return ext, nil
}

// HeaderExtensionEnforcesUnique reports whether at most one extension with
// id may appear in a header. known is false for unregistered ids.
func HeaderExtensionEnforcesUnique(id uint16) (unique, known bool) {
	entry, ok := headerExtensionRegistry[id]
	return entry.enforceUnique, ok
}

// HeaderExtensionName returns the name of a registered extension id.
func HeaderExtensionName(id uint16) string {
	if entry, ok := headerExtensionRegistry[id]; ok {
		return entry.name
	}
	return fmt.Sprintf("unknown(%d)", id)
}

// ProtocolFeatureActivation lists the digests of the protocol features a
// block activates, in activation order.
type ProtocolFeatureActivation struct {
	ProtocolFeatures []crypto.Checksum256 `serialize:"true" json:"protocol_features"`
}

func (*ProtocolFeatureActivation) ExtensionID() uint16 { return ProtocolFeatureActivationID }
func (*ProtocolFeatureActivation) isHeaderExtension()  {}

// MasterScheduleChangeExtension carries the complete schedule a block
// proposes. It becomes active once the block is irreversible.
type MasterScheduleChangeExtension struct {
	MasterAuthoritySchedule `serialize:"true"`
}

func (*MasterScheduleChangeExtension) ExtensionID() uint16 { return MasterScheduleChangeExtensionID }
func (*MasterScheduleChangeExtension) isHeaderExtension()  {}

// NewMasterScheduleChangeExtension wraps a copy of s.
func NewMasterScheduleChangeExtension(s *MasterAuthoritySchedule) *MasterScheduleChangeExtension {
	return &MasterScheduleChangeExtension{
		MasterAuthoritySchedule: *NewMasterAuthoritySchedule(s.Version, s.Masters...),
	}
}

// Schedule returns the proposed schedule.
func (e *MasterScheduleChangeExtension) Schedule() *MasterAuthoritySchedule {
	return &e.MasterAuthoritySchedule
}

// HeaderExtensionEntry is one decoded extension.
type HeaderExtensionEntry struct {
	ID        uint16
	Extension HeaderExtension
}

// HeaderExtensions is the decoded extension list of a header, ordered by id.
// Entries sharing an id keep their order from the header.
type HeaderExtensions []HeaderExtensionEntry

// Find returns the extensions with id.
func (exts HeaderExtensions) Find(id uint16) []HeaderExtension {
	i := sort.Search(len(exts), func(i int) bool { return exts[i].ID >= id })
	var out []HeaderExtension
	for ; i < len(exts) && exts[i].ID == id; i++ {
		out = append(out, exts[i].Extension)
	}
	return out
}

// Count returns the number of extensions with id.
func (exts HeaderExtensions) Count(id uint16) int {
	return len(exts.Find(id))
}

// MasterScheduleChange returns the schedule change extension, if any.
func (exts HeaderExtensions) MasterScheduleChange() (*MasterScheduleChangeExtension, bool) {
	found := exts.Find(MasterScheduleChangeExtensionID)
	if len(found) == 0 {
		return nil, false
	}
	return found[0].(*MasterScheduleChangeExtension), true
}

// ProtocolFeatureActivation returns the feature activation extension, if any.
func (exts HeaderExtensions) ProtocolFeatureActivation() (*ProtocolFeatureActivation, bool) {
	found := exts.Find(ProtocolFeatureActivationID)
	if len(found) == 0 {
		return nil, false
	}
	return found[0].(*ProtocolFeatureActivation), true
}
