// Package merkle computes the canonical merkle root used for the
// transaction and action roots of a block header.
package merkle

import (
	"github.com/inery/inery/crypto"
)

func canonicalLeft(d crypto.Checksum256) crypto.Checksum256 {
	d[0] &= 0x7f
	return d
}

func canonicalRight(d crypto.Checksum256) crypto.Checksum256 {
	d[0] |= 0x80
	return d
}

// hashPair marks each side so that a left node can never be confused with a
// right node, then hashes their concatenation.
func hashPair(l, r crypto.Checksum256) crypto.Checksum256 {
	cl, cr := canonicalLeft(l), canonicalRight(r)
	return crypto.Sha256(cl[:], cr[:])
}

// Root returns the merkle root of ids. Odd levels duplicate their last node.
// The root of an empty list is the zero digest.
func Root(ids []crypto.Checksum256) crypto.Checksum256 {
	if len(ids) == 0 {
		return crypto.Checksum256{}
	}

	level := make([]crypto.Checksum256, len(ids))
	copy(level, ids)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		for i := 0; i < len(level)/2; i++ {
			level[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = level[:len(level)/2]
	}
	return level[0]
}
