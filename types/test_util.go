package types

import (
	"encoding/binary"
	"fmt"

	"github.com/inery/inery/crypto"
	"github.com/inery/inery/crypto/merkle"
)

// RandMasterKeys returns n fresh private keys.
func RandMasterKeys(n int) []crypto.PrivKey {
	keys := make([]crypto.PrivKey, n)
	for i := range keys {
		k, err := crypto.GenPrivKey()
		if err != nil {
			panic(err)
		}
		keys[i] = k
	}
	return keys
}

// MakeSingleKeySchedule returns a schedule in which master i is named
// "master<letter>" and holds keys[i] at threshold 1.
func MakeSingleKeySchedule(version uint32, keys []crypto.PrivKey) *MasterAuthoritySchedule {
	masters := make([]MasterAuthority, len(keys))
	for i, k := range keys {
		masters[i] = MasterAuthority{
			MasterName: TestMasterName(i),
			Authority:  NewBlockSigningAuthorityV0(1, KeyWeight{Key: k.PubKey(), Weight: 1}),
		}
	}
	return NewMasterAuthoritySchedule(version, masters...)
}

// TestMasterName returns a valid, distinct name for index i < 26*26.
func TestMasterName(i int) AccountName {
	return MustAccountName(fmt.Sprintf("master%c%c", 'a'+byte(i/26%26), 'a'+byte(i%26)))
}

// MakeHeader returns an unsigned header following previous. A zero previous
// makes block 1. The block carries no transactions and a single action
// derived from previous.
func MakeHeader(previous BlockID, master AccountName, scheduleVersion uint32) BlockHeader {
	h := BlockHeader{
		Timestamp:        BlockTimestamp(NumFromID(previous) + 1),
		Master:           master,
		Previous:         previous,
		TransactionMRoot: merkle.Root(nil),
		ActionMRoot:      merkle.Root([]crypto.Checksum256{crypto.Sha256(previous[:])}),
		ScheduleVersion:  scheduleVersion,
	}
	if NumFromID(previous) > 0 {
		h.Confirmed = DefaultConfirmed
	}
	return h
}

// MakeSignedHeader returns header signed by priv.
func MakeSignedHeader(header BlockHeader, priv crypto.PrivKey) *SignedBlockHeader {
	sh := &SignedBlockHeader{BlockHeader: header}
	if err := sh.Sign(priv); err != nil {
		panic(err)
	}
	return sh
}

// BlockIDFromNum returns an id whose block number is num.
func BlockIDFromNum(num uint32) BlockID {
	var id BlockID
	binary.BigEndian.PutUint32(id[:4], num)
	return id
}
