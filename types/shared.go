package types

import (
	"errors"
	"fmt"

	"github.com/inery/inery/crypto"
	"github.com/inery/inery/libs/arena"
	tmmath "github.com/inery/inery/libs/math"
	chainproto "github.com/inery/inery/proto/inery/chain"
)

// The shared forms mirror the transient authority and schedule types field
// for field. Their sequences live in an arena and are only valid while that
// arena is live; reading them after Release panics.

// SharedKeyWeight is the shared form of KeyWeight.
type SharedKeyWeight struct {
	Key    crypto.PubKey
	Weight uint16
}

// SharedBlockSigningAuthority is the shared form of BlockSigningAuthority.
type SharedBlockSigningAuthority interface {
	isSharedBlockSigningAuthority()
}

// SharedBlockSigningAuthorityV0 is the shared form of BlockSigningAuthorityV0.
type SharedBlockSigningAuthorityV0 struct {
	Threshold uint32
	Keys      arena.Vector[SharedKeyWeight]
}

func (*SharedBlockSigningAuthorityV0) isSharedBlockSigningAuthority() {}

// SharedMasterAuthority is the shared form of MasterAuthority.
type SharedMasterAuthority struct {
	MasterName AccountName
	Authority  SharedBlockSigningAuthority
}

// SharedMasterAuthoritySchedule is the shared form of MasterAuthoritySchedule.
type SharedMasterAuthoritySchedule struct {
	Version uint32
	Masters arena.Vector[SharedMasterAuthority]
}

// NewSharedMasterAuthoritySchedule returns an empty schedule allocated from alloc.
func NewSharedMasterAuthoritySchedule(alloc arena.Allocator, version uint32, capacity int) *SharedMasterAuthoritySchedule {
	return &SharedMasterAuthoritySchedule{
		Version: version,
		Masters: arena.NewVector[SharedMasterAuthority](alloc, capacity),
	}
}

// ToProto converts the shared schedule to its persisted message.
func (s *SharedMasterAuthoritySchedule) ToProto() *chainproto.MasterAuthoritySchedule {
	pb := &chainproto.MasterAuthoritySchedule{
		Version: s.Version,
		Masters: make([]*chainproto.MasterAuthority, 0, s.Masters.Len()),
	}
	s.Masters.Range(func(_ int, m SharedMasterAuthority) bool {
		pb.Masters = append(pb.Masters, &chainproto.MasterAuthority{
			MasterName: uint64(m.MasterName),
			Authority:  sharedAuthorityToProto(m.Authority),
		})
		return true
	})
	return pb
}

func sharedAuthorityToProto(a SharedBlockSigningAuthority) *chainproto.BlockSigningAuthority {
	switch a := a.(type) {
	case *SharedBlockSigningAuthorityV0:
		v0 := &chainproto.BlockSigningAuthorityV0{
			Threshold: a.Threshold,
			Keys:      make([]*chainproto.KeyWeight, 0, a.Keys.Len()),
		}
		a.Keys.Range(func(_ int, kw SharedKeyWeight) bool {
			v0.Keys = append(v0.Keys, &chainproto.KeyWeight{Key: kw.Key[:], Weight: uint32(kw.Weight)})
			return true
		})
		return &chainproto.BlockSigningAuthority{V0: v0}
	default:
		panic(unknownAuthority(a))
	}
}

// SharedMasterAuthorityScheduleFromProto allocates a shared schedule from a
// persisted message.
func SharedMasterAuthorityScheduleFromProto(
	alloc arena.Allocator,
	pb *chainproto.MasterAuthoritySchedule,
) (*SharedMasterAuthoritySchedule, error) {
	if pb == nil {
		return nil, errors.New("nil master authority schedule")
	}
	s := NewSharedMasterAuthoritySchedule(alloc, pb.Version, len(pb.Masters))
	for i, m := range pb.Masters {
		auth, err := sharedAuthorityFromProto(alloc, m.GetAuthority())
		if err != nil {
			return nil, fmt.Errorf("master %d: %w", i, err)
		}
		s.Masters.Append(SharedMasterAuthority{
			MasterName: AccountName(m.GetMasterName()),
			Authority:  auth,
		})
	}
	return s, nil
}

func sharedAuthorityFromProto(alloc arena.Allocator, pb *chainproto.BlockSigningAuthority) (SharedBlockSigningAuthority, error) {
	switch {
	case pb.GetV0() != nil:
		v0 := pb.GetV0()
		shared := &SharedBlockSigningAuthorityV0{
			Threshold: v0.Threshold,
			Keys:      arena.NewVector[SharedKeyWeight](alloc, len(v0.Keys)),
		}
		for _, kw := range v0.Keys {
			if len(kw.GetKey()) != crypto.PubKeySize {
				return nil, fmt.Errorf("key length %d, want %d", len(kw.GetKey()), crypto.PubKeySize)
			}
			weight, err := tmmath.SafeConvertUint16(int(kw.GetWeight()))
			if err != nil {
				return nil, fmt.Errorf("key weight: %w", err)
			}
			var pk crypto.PubKey
			copy(pk[:], kw.GetKey())
			shared.Keys.Append(SharedKeyWeight{Key: pk, Weight: weight})
		}
		return shared, nil
	default:
		return nil, ErrNilAuthority
	}
}
