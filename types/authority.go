package types

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/inery/inery/crypto"
	"github.com/inery/inery/internal/jsontypes"
	"github.com/inery/inery/libs/arena"
	tmmath "github.com/inery/inery/libs/math"
)

var (
	ErrNilAuthority        = errors.New("nil block signing authority")
	ErrZeroThreshold       = errors.New("authority threshold must be greater than zero")
	ErrNoAuthorityKeys     = errors.New("authority has no keys")
	ErrDuplicateAuthKey    = errors.New("duplicate key in authority")
	ErrZeroKeyWeight       = errors.New("authority key weight must be greater than zero")
	ErrUnsatisfiableWeight = errors.New("authority keys cannot reach threshold")
)

func init() {
	jsontypes.MustRegister((*BlockSigningAuthorityV0)(nil))
}

// KeyWeight is a public key and the weight it contributes to an authority.
type KeyWeight struct {
	Key    crypto.PubKey `serialize:"true" json:"key"`
	Weight uint16        `serialize:"true" json:"weight"`
}

// KeySet is a set of public keys presented for an authority check, usually
// the keys recovered from a block's signatures.
type KeySet map[crypto.PubKey]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...crypto.PubKey) KeySet {
	ks := make(KeySet, len(keys))
	for _, k := range keys {
		ks[k] = struct{}{}
	}
	return ks
}

// Has reports whether k is in the set.
func (ks KeySet) Has(k crypto.PubKey) bool {
	_, ok := ks[k]
	return ok
}

// BlockSigningAuthority is the closed set of authority variants a master can
// sign with. *BlockSigningAuthorityV0 is the only variant.
//
// Operations on a BlockSigningAuthority go through the package functions
// below (ForEachAuthorityKey, AuthorityKeysSatisfyAndRelevant, ...), each of
// which is the single place that switches over the variants. A new variant
// is added by implementing it, registering it after the existing ones in
// codec.go and extending each switch.
type BlockSigningAuthority interface {
	jsontypes.Tagged
	isBlockSigningAuthority()
}

// BlockSigningAuthorityV0 is a weighted key set with a threshold.
type BlockSigningAuthorityV0 struct {
	Threshold uint32      `serialize:"true" json:"threshold"`
	Keys      []KeyWeight `serialize:"true" json:"keys"`
}

var _ BlockSigningAuthority = (*BlockSigningAuthorityV0)(nil)

// NewBlockSigningAuthorityV0 returns an authority over a copy of keys.
func NewBlockSigningAuthorityV0(threshold uint32, keys ...KeyWeight) *BlockSigningAuthorityV0 {
	return &BlockSigningAuthorityV0{
		Threshold: threshold,
		Keys:      append([]KeyWeight(nil), keys...),
	}
}

func (*BlockSigningAuthorityV0) isBlockSigningAuthority() {}

// TypeTag implements jsontypes.Tagged.
func (*BlockSigningAuthorityV0) TypeTag() string { return "block_signing_authority_v0" }

// ForEachKey calls fn for every key in stored order.
func (a *BlockSigningAuthorityV0) ForEachKey(fn func(crypto.PubKey)) {
	for _, kw := range a.Keys {
		fn(kw.Key)
	}
}

// KeysSatisfyAndRelevant reports whether the presented keys reach the
// threshold, and how many of the authority's keys were presented. Every
// presented key is counted, including those past the threshold. The
// accumulated weight saturates at math.MaxUint32.
func (a *BlockSigningAuthorityV0) KeysSatisfyAndRelevant(presented KeySet) (bool, int) {
	var (
		weight   uint32
		relevant int
	)
	for _, kw := range a.Keys {
		if !presented.Has(kw.Key) {
			continue
		}
		relevant++
		if weight < a.Threshold {
			weight = tmmath.SaturatingAddUint32(weight, uint32(kw.Weight))
		}
	}
	return weight >= a.Threshold, relevant
}

// Equal compares threshold and keys. Key order matters.
func (a *BlockSigningAuthorityV0) Equal(other *BlockSigningAuthorityV0) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.Threshold != other.Threshold || len(a.Keys) != len(other.Keys) {
		return false
	}
	for i := range a.Keys {
		if a.Keys[i] != other.Keys[i] {
			return false
		}
	}
	return true
}

// ValidateBasic checks that the authority can be satisfied: a positive
// threshold, at least one key, no duplicate or zero-weight keys and a total
// weight that reaches the threshold.
func (a *BlockSigningAuthorityV0) ValidateBasic() error {
	if a == nil {
		return ErrNilAuthority
	}
	if a.Threshold == 0 {
		return ErrZeroThreshold
	}
	if len(a.Keys) == 0 {
		return ErrNoAuthorityKeys
	}

	var total uint32
	seen := make(KeySet, len(a.Keys))
	for i, kw := range a.Keys {
		if seen.Has(kw.Key) {
			return fmt.Errorf("%w: %v at index %d", ErrDuplicateAuthKey, kw.Key, i)
		}
		seen[kw.Key] = struct{}{}
		if kw.Weight == 0 {
			return fmt.Errorf("%w: %v at index %d", ErrZeroKeyWeight, kw.Key, i)
		}
		total = tmmath.SaturatingAddUint32(total, uint32(kw.Weight))
	}
	if total < a.Threshold {
		return fmt.Errorf("%w: total weight %d, threshold %d", ErrUnsatisfiableWeight, total, a.Threshold)
	}
	return nil
}

// ToShared copies the authority into alloc.
func (a *BlockSigningAuthorityV0) ToShared(alloc arena.Allocator) *SharedBlockSigningAuthorityV0 {
	shared := &SharedBlockSigningAuthorityV0{
		Threshold: a.Threshold,
		Keys:      arena.NewVector[SharedKeyWeight](alloc, len(a.Keys)),
	}
	for _, kw := range a.Keys {
		shared.Keys.Append(SharedKeyWeight{Key: kw.Key, Weight: kw.Weight})
	}
	return shared
}

func (a *BlockSigningAuthorityV0) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "V0{threshold:%d keys:[", a.Threshold)
	for i, kw := range a.Keys {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%v:%d", kw.Key, kw.Weight)
	}
	sb.WriteString("]}")
	return sb.String()
}

// BlockSigningAuthorityV0FromShared copies a shared authority out of its arena.
func BlockSigningAuthorityV0FromShared(shared *SharedBlockSigningAuthorityV0) *BlockSigningAuthorityV0 {
	a := &BlockSigningAuthorityV0{
		Threshold: shared.Threshold,
		Keys:      make([]KeyWeight, 0, shared.Keys.Len()),
	}
	shared.Keys.Range(func(_ int, kw SharedKeyWeight) bool {
		a.Keys = append(a.Keys, KeyWeight{Key: kw.Key, Weight: kw.Weight})
		return true
	})
	return a
}

func unknownAuthority(a interface{}) string {
	return fmt.Sprintf("unknown block signing authority variant %T", a)
}

// ForEachAuthorityKey calls fn for every key of a in stored order.
func ForEachAuthorityKey(a BlockSigningAuthority, fn func(crypto.PubKey)) {
	switch a := a.(type) {
	case *BlockSigningAuthorityV0:
		a.ForEachKey(fn)
	default:
		panic(unknownAuthority(a))
	}
}

// AuthorityKeysSatisfyAndRelevant dispatches KeysSatisfyAndRelevant.
func AuthorityKeysSatisfyAndRelevant(a BlockSigningAuthority, presented KeySet) (bool, int) {
	switch a := a.(type) {
	case *BlockSigningAuthorityV0:
		return a.KeysSatisfyAndRelevant(presented)
	default:
		panic(unknownAuthority(a))
	}
}

// AuthorityEqual reports whether a and b are the same variant with equal
// contents.
func AuthorityEqual(a, b BlockSigningAuthority) bool {
	switch a := a.(type) {
	case *BlockSigningAuthorityV0:
		bv, ok := b.(*BlockSigningAuthorityV0)
		return ok && a.Equal(bv)
	default:
		panic(unknownAuthority(a))
	}
}

// ValidateAuthority dispatches ValidateBasic. A nil authority is an error,
// not a panic, since it can come from decoded input.
func ValidateAuthority(a BlockSigningAuthority) error {
	switch a := a.(type) {
	case nil:
		return ErrNilAuthority
	case *BlockSigningAuthorityV0:
		return a.ValidateBasic()
	default:
		panic(unknownAuthority(a))
	}
}

// AuthorityToShared dispatches ToShared.
func AuthorityToShared(a BlockSigningAuthority, alloc arena.Allocator) SharedBlockSigningAuthority {
	switch a := a.(type) {
	case *BlockSigningAuthorityV0:
		return a.ToShared(alloc)
	default:
		panic(unknownAuthority(a))
	}
}

// AuthorityFromShared converts a shared authority back to its transient
// variant.
func AuthorityFromShared(shared SharedBlockSigningAuthority) BlockSigningAuthority {
	switch shared := shared.(type) {
	case *SharedBlockSigningAuthorityV0:
		return BlockSigningAuthorityV0FromShared(shared)
	default:
		panic(unknownAuthority(shared))
	}
}

// authorityEqualShared compares a transient authority with a shared one:
// same variant, threshold and keys element-wise.
func authorityEqualShared(a BlockSigningAuthority, shared SharedBlockSigningAuthority) bool {
	switch a := a.(type) {
	case *BlockSigningAuthorityV0:
		sv, ok := shared.(*SharedBlockSigningAuthorityV0)
		if !ok || a.Threshold != sv.Threshold || len(a.Keys) != sv.Keys.Len() {
			return false
		}
		equal := true
		sv.Keys.Range(func(i int, kw SharedKeyWeight) bool {
			equal = a.Keys[i].Key == kw.Key && a.Keys[i].Weight == kw.Weight
			return equal
		})
		return equal
	default:
		panic(unknownAuthority(a))
	}
}

// MaxAuthorityWeight is the largest weight an authority can accumulate.
const MaxAuthorityWeight = math.MaxUint32
