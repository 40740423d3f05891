package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/inery/inery/crypto"
	"github.com/inery/inery/internal/jsontypes"
	"github.com/inery/inery/libs/arena"
	tmmath "github.com/inery/inery/libs/math"
)

// MaxMasters is the largest number of masters a schedule may hold.
const MaxMasters = 125

var (
	ErrEmptySchedule          = errors.New("schedule has no masters")
	ErrTooManyMasters         = fmt.Errorf("schedule has more than %d masters", MaxMasters)
	ErrEmptyMasterName        = errors.New("master name is empty")
	ErrDuplicateMasterName    = errors.New("duplicate master name in schedule")
	ErrInvalidMasterAuthority = errors.New("invalid master authority")
)

// MasterAuthority binds a master account to the authority it signs blocks
// with.
type MasterAuthority struct {
	MasterName AccountName           `serialize:"true" json:"master_name"`
	Authority  BlockSigningAuthority `serialize:"true" json:"authority"`
}

// ForEachKey calls fn for every key of the master's authority.
func (ma MasterAuthority) ForEachKey(fn func(crypto.PubKey)) {
	ForEachAuthorityKey(ma.Authority, fn)
}

// KeysSatisfyAndRelevant tests presented against the master's authority.
func (ma MasterAuthority) KeysSatisfyAndRelevant(presented KeySet) (bool, int) {
	return AuthorityKeysSatisfyAndRelevant(ma.Authority, presented)
}

// Equal compares name and authority.
func (ma MasterAuthority) Equal(other MasterAuthority) bool {
	return ma.MasterName == other.MasterName && AuthorityEqual(ma.Authority, other.Authority)
}

// EqualShared compares ma with its shared form: same name, same variant,
// same threshold and the same keys in the same order.
func (ma MasterAuthority) EqualShared(shared SharedMasterAuthority) bool {
	return ma.MasterName == shared.MasterName && authorityEqualShared(ma.Authority, shared.Authority)
}

// ValidateBasic checks the name and the authority.
func (ma MasterAuthority) ValidateBasic() error {
	if ma.MasterName.IsEmpty() {
		return ErrEmptyMasterName
	}
	if err := ValidateAuthority(ma.Authority); err != nil {
		return fmt.Errorf("%w %v: %w", ErrInvalidMasterAuthority, ma.MasterName, err)
	}
	return nil
}

// ToShared copies ma into alloc.
func (ma MasterAuthority) ToShared(alloc arena.Allocator) SharedMasterAuthority {
	return SharedMasterAuthority{
		MasterName: ma.MasterName,
		Authority:  AuthorityToShared(ma.Authority, alloc),
	}
}

func (ma MasterAuthority) String() string {
	return fmt.Sprintf("%v:%v", ma.MasterName, ma.Authority)
}

type masterAuthorityJSON struct {
	MasterName AccountName     `json:"master_name"`
	Authority  json.RawMessage `json:"authority"`
}

func (ma MasterAuthority) MarshalJSON() ([]byte, error) {
	auth, err := jsontypes.Marshal(ma.Authority)
	if err != nil {
		return nil, err
	}
	return json.Marshal(masterAuthorityJSON{MasterName: ma.MasterName, Authority: auth})
}

func (ma *MasterAuthority) UnmarshalJSON(data []byte) error {
	var v masterAuthorityJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var auth BlockSigningAuthority
	if err := jsontypes.Unmarshal(v.Authority, &auth); err != nil {
		return fmt.Errorf("decoding authority of %v: %w", v.MasterName, err)
	}
	ma.MasterName = v.MasterName
	ma.Authority = auth
	return nil
}

// MasterAuthorityFromShared copies a shared master authority out of its arena.
func MasterAuthorityFromShared(shared SharedMasterAuthority) MasterAuthority {
	return MasterAuthority{
		MasterName: shared.MasterName,
		Authority:  AuthorityFromShared(shared.Authority),
	}
}

//-----------------------------------------------------------------------------

// MasterAuthoritySchedule is the versioned, ordered list of masters allowed
// to sign blocks. Schedules are values: once built they are never modified,
// and a change produces a new schedule through Next.
type MasterAuthoritySchedule struct {
	Version uint32            `serialize:"true" json:"version"`
	Masters []MasterAuthority `serialize:"true" json:"masters"`
}

// NewMasterAuthoritySchedule returns a schedule over a copy of masters.
func NewMasterAuthoritySchedule(version uint32, masters ...MasterAuthority) *MasterAuthoritySchedule {
	return &MasterAuthoritySchedule{
		Version: version,
		Masters: append([]MasterAuthority{}, masters...),
	}
}

// NewMasterAuthorityScheduleFromLegacy upgrades a legacy schedule: every
// master gets a threshold 1 authority holding its single key at weight 1.
func NewMasterAuthorityScheduleFromLegacy(legacy LegacyMasterSchedule) *MasterAuthoritySchedule {
	s := &MasterAuthoritySchedule{
		Version: legacy.Version,
		Masters: make([]MasterAuthority, 0, len(legacy.Masters)),
	}
	for _, m := range legacy.Masters {
		s.Masters = append(s.Masters, MasterAuthority{
			MasterName: m.MasterName,
			Authority: NewBlockSigningAuthorityV0(1, KeyWeight{
				Key:    m.BlockSigningKey,
				Weight: 1,
			}),
		})
	}
	return s
}

// Next returns a new schedule over masters with the version after s.
func (s *MasterAuthoritySchedule) Next(masters ...MasterAuthority) *MasterAuthoritySchedule {
	return NewMasterAuthoritySchedule(tmmath.SafeAddUint32(s.Version, 1), masters...)
}

// Master returns the authority of the named master.
func (s *MasterAuthoritySchedule) Master(name AccountName) (MasterAuthority, bool) {
	for _, m := range s.Masters {
		if m.MasterName == name {
			return m, true
		}
	}
	return MasterAuthority{}, false
}

// Size returns the number of masters.
func (s *MasterAuthoritySchedule) Size() int {
	return len(s.Masters)
}

// Equal compares version and masters element-wise. The same masters in a
// different order make a different schedule.
func (s *MasterAuthoritySchedule) Equal(other *MasterAuthoritySchedule) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Version != other.Version || len(s.Masters) != len(other.Masters) {
		return false
	}
	for i := range s.Masters {
		if !s.Masters[i].Equal(other.Masters[i]) {
			return false
		}
	}
	return true
}

// EqualShared compares s with a shared schedule.
func (s *MasterAuthoritySchedule) EqualShared(shared *SharedMasterAuthoritySchedule) bool {
	if s.Version != shared.Version || len(s.Masters) != shared.Masters.Len() {
		return false
	}
	equal := true
	shared.Masters.Range(func(i int, m SharedMasterAuthority) bool {
		equal = s.Masters[i].EqualShared(m)
		return equal
	})
	return equal
}

// ValidateBasic checks the master count, the names and every authority.
func (s *MasterAuthoritySchedule) ValidateBasic() error {
	if len(s.Masters) == 0 {
		return ErrEmptySchedule
	}
	if len(s.Masters) > MaxMasters {
		return ErrTooManyMasters
	}
	names := make(map[AccountName]struct{}, len(s.Masters))
	for i, m := range s.Masters {
		if err := m.ValidateBasic(); err != nil {
			return fmt.Errorf("master %d: %w", i, err)
		}
		if _, ok := names[m.MasterName]; ok {
			return fmt.Errorf("%w: %v", ErrDuplicateMasterName, m.MasterName)
		}
		names[m.MasterName] = struct{}{}
	}
	return nil
}

// Bytes returns the canonical encoding of s.
func (s *MasterAuthoritySchedule) Bytes() ([]byte, error) {
	return Codec.Marshal(CodecVersion, s)
}

// Hash returns the sha256 of the canonical encoding of s.
func (s *MasterAuthoritySchedule) Hash() (crypto.Checksum256, error) {
	bz, err := s.Bytes()
	if err != nil {
		return crypto.Checksum256{}, err
	}
	return crypto.Sha256(bz), nil
}

// ToShared copies s into alloc.
func (s *MasterAuthoritySchedule) ToShared(alloc arena.Allocator) *SharedMasterAuthoritySchedule {
	shared := NewSharedMasterAuthoritySchedule(alloc, s.Version, len(s.Masters))
	for _, m := range s.Masters {
		shared.Masters.Append(m.ToShared(alloc))
	}
	return shared
}

func (s *MasterAuthoritySchedule) String() string {
	if s == nil {
		return "nil-MasterAuthoritySchedule"
	}
	names := make([]string, 0, len(s.Masters))
	for _, m := range s.Masters {
		names = append(names, m.MasterName.String())
	}
	return fmt.Sprintf("MasterAuthoritySchedule{v%d [%s]}", s.Version, strings.Join(names, " "))
}

// MasterAuthorityScheduleFromBytes decodes a schedule from its canonical
// encoding.
func MasterAuthorityScheduleFromBytes(bz []byte) (*MasterAuthoritySchedule, error) {
	s := new(MasterAuthoritySchedule)
	if err := unmarshalExact(bz, s); err != nil {
		return nil, err
	}
	return s, nil
}

// MasterAuthorityScheduleFromShared copies a shared schedule out of its arena.
func MasterAuthorityScheduleFromShared(shared *SharedMasterAuthoritySchedule) *MasterAuthoritySchedule {
	s := &MasterAuthoritySchedule{
		Version: shared.Version,
		Masters: make([]MasterAuthority, 0, shared.Masters.Len()),
	}
	shared.Masters.Range(func(_ int, m SharedMasterAuthority) bool {
		s.Masters = append(s.Masters, MasterAuthorityFromShared(m))
		return true
	})
	return s
}
