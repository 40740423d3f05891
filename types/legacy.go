package types

import "github.com/inery/inery/crypto"

// LegacyMasterKey is a master with a single block signing key, the format
// used before weighted authorities.
type LegacyMasterKey struct {
	MasterName      AccountName   `serialize:"true" json:"master_name"`
	BlockSigningKey crypto.PubKey `serialize:"true" json:"block_signing_key"`
}

// LegacyMasterSchedule is the single-key schedule carried in the
// BlockHeader.NewMasters field.
type LegacyMasterSchedule struct {
	Version uint32            `serialize:"true" json:"version"`
	Masters []LegacyMasterKey `serialize:"true" json:"masters"`
}

// Equal compares version and masters in order.
func (s LegacyMasterSchedule) Equal(other LegacyMasterSchedule) bool {
	if s.Version != other.Version || len(s.Masters) != len(other.Masters) {
		return false
	}
	for i := range s.Masters {
		if s.Masters[i] != other.Masters[i] {
			return false
		}
	}
	return true
}
