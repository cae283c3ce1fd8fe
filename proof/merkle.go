package proof

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/celestiaorg/merkletree"
)

// leafHashes returns the RFC-6962 leaf hashes of leaves.
func leafHashes(leaves [][]byte) [][]byte {
	out := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		tree := merkletree.New(sha256.New())
		tree.Push(leaf)
		out[i] = tree.Root()
	}
	return out
}

// RootFromLeaves computes the RFC-6962 root of a non-empty leaf list.
func RootFromLeaves(leaves [][]byte) ([32]byte, error) {
	if len(leaves) == 0 {
		return [32]byte{}, errors.New("cannot compute root of empty tree")
	}
	tree := merkletree.New(sha256.New())
	for _, leaf := range leaves {
		tree.Push(leaf)
	}
	var root [32]byte
	copy(root[:], tree.Root())
	return root, nil
}

// ProveRange builds a multiproof for leaves [begin, end) and returns it with
// the tree root. Side nodes are the subtree roots left of the range followed
// by those right of it.
func ProveRange(leaves [][]byte, begin, end int) (MerkleMultiproof, [32]byte, error) {
	if begin < 0 || end > len(leaves) || begin >= end {
		return MerkleMultiproof{}, [32]byte{}, fmt.Errorf("invalid range [%d, %d) for %d leaves", begin, end, len(leaves))
	}
	root, err := RootFromLeaves(leaves)
	if err != nil {
		return MerkleMultiproof{}, [32]byte{}, err
	}
	nodes, err := merkletree.BuildRangeProof(begin, end, merkletree.NewCachedSubtreeHasher(leafHashes(leaves), sha256.New()))
	if err != nil {
		return MerkleMultiproof{}, [32]byte{}, fmt.Errorf("failed to build range proof: %v", err)
	}
	side := make([][32]byte, len(nodes))
	for i, n := range nodes {
		copy(side[i][:], n)
	}
	return MerkleMultiproof{
		SideNodes: side,
		BeginKey:  big.NewInt(int64(begin)),
		EndKey:    big.NewInt(int64(end)),
	}, root, nil
}

// VerifyRange checks that rangeLeaves sit at [BeginKey, EndKey) of a tree
// with total leaves and the given root.
func VerifyRange(root [32]byte, total int, rangeLeaves [][]byte, p MerkleMultiproof) error {
	if p.BeginKey == nil || p.EndKey == nil || !p.BeginKey.IsInt64() || !p.EndKey.IsInt64() {
		return errors.New("range keys missing")
	}
	begin, end := int(p.BeginKey.Int64()), int(p.EndKey.Int64())
	if begin < 0 || end > total || begin >= end || end-begin != len(rangeLeaves) {
		return fmt.Errorf("invalid range [%d, %d) for %d leaves", begin, end, total)
	}
	nodes := make([][]byte, len(p.SideNodes))
	for i := range p.SideNodes {
		nodes[i] = p.SideNodes[i][:]
	}
	ok, err := merkletree.VerifyRangeProof(merkletree.NewCachedLeafHasher(leafHashes(rangeLeaves)), sha256.New(), begin, end, nodes, root[:])
	if err != nil {
		return fmt.Errorf("failed to verify range proof: %v", err)
	}
	if !ok {
		return fmt.Errorf("range proof does not match root %x", root)
	}
	return nil
}
