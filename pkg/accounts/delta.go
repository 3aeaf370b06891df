package accounts

import (
	"bytes"
	"sort"

	"github.com/GotokHQ/card-stamp/pkg/types"
)

const (
	// merkleArity is the number of children per node in the Merkle tree.
	merkleArity = 16
)

// ComputeDeltaHash computes a 16-ary Merkle tree hash over the account
// deltas committed by an execution. Deltas are sorted by pubkey first so
// the hash is independent of commit order. A deleted account hashes as
// its bare pubkey.
func ComputeDeltaHash(deltas []types.AccountDelta) types.Hash {
	if len(deltas) == 0 {
		return types.ZeroHash
	}

	sorted := make([]types.AccountDelta, len(deltas))
	copy(sorted, deltas)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Pubkey[:], sorted[j].Pubkey[:]) < 0
	})

	hashes := make([]types.Hash, len(sorted))
	for i, delta := range sorted {
		hashes[i] = hashDelta(&delta)
	}

	return computeMerkleRoot(hashes)
}

// hashDelta computes the leaf hash of a single account delta.
func hashDelta(delta *types.AccountDelta) types.Hash {
	if delta.NewAccount == nil {
		return types.SHA256(delta.Pubkey[:])
	}
	serialized, err := SerializeAccount(delta.NewAccount)
	if err != nil {
		return types.SHA256(delta.Pubkey[:])
	}
	data := make([]byte, 0, 32+len(serialized))
	data = append(data, delta.Pubkey[:]...)
	data = append(data, serialized...)
	return types.SHA256(data)
}

// computeMerkleRoot computes the root of a 16-ary Merkle tree.
func computeMerkleRoot(hashes []types.Hash) types.Hash {
	if len(hashes) == 0 {
		return types.ZeroHash
	}
	for len(hashes) > 1 {
		hashes = computeNextLevel(hashes)
	}
	return hashes[0]
}

// computeNextLevel computes the next level of the 16-ary Merkle tree.
func computeNextLevel(hashes []types.Hash) []types.Hash {
	numParents := (len(hashes) + merkleArity - 1) / merkleArity
	parents := make([]types.Hash, numParents)

	for i := 0; i < numParents; i++ {
		start := i * merkleArity
		end := start + merkleArity
		if end > len(hashes) {
			end = len(hashes)
		}
		parents[i] = hashChildren(hashes[start:end])
	}

	return parents
}

// hashChildren computes the hash of a group of child nodes.
func hashChildren(children []types.Hash) types.Hash {
	if len(children) == 0 {
		return types.ZeroHash
	}
	if len(children) == 1 {
		return children[0]
	}

	data := make([]byte, 0, len(children)*32)
	for _, child := range children {
		data = append(data, child[:]...)
	}
	return types.SHA256(data)
}
