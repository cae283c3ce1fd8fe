package proof

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/cometbft/cometbft/crypto/merkle"
	"github.com/stretchr/testify/require"
)

func testLeaves(n int) [][]byte {
	leaves := make([][]byte, n)
	for i := range leaves {
		leaves[i] = []byte(fmt.Sprintf("leaf-%d", i))
	}
	return leaves
}

func TestRootMatchesCometBFT(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13, 16} {
		leaves := testLeaves(n)
		root, err := RootFromLeaves(leaves)
		require.NoError(t, err)
		require.Equal(t, merkle.HashFromByteSlices(leaves), root[:], "n=%d", n)
	}

	_, err := RootFromLeaves(nil)
	require.Error(t, err)
}

func TestProveAndVerifyRange(t *testing.T) {
	for _, n := range []int{1, 4, 7, 16} {
		leaves := testLeaves(n)
		want, err := RootFromLeaves(leaves)
		require.NoError(t, err)

		for begin := 0; begin < n; begin++ {
			for end := begin + 1; end <= n; end++ {
				p, root, err := ProveRange(leaves, begin, end)
				require.NoError(t, err)
				require.Equal(t, want, root)
				require.NoError(t, VerifyRange(root, n, leaves[begin:end], p), "n=%d [%d,%d)", n, begin, end)
			}
		}
	}
}

func TestFirstLeafProofMatchesCometBFT(t *testing.T) {
	for _, n := range []int{2, 5, 8, 13} {
		leaves := testLeaves(n)
		_, proofs := merkle.ProofsFromByteSlices(leaves)

		p, _, err := ProveRange(leaves, 0, 1)
		require.NoError(t, err)
		require.Len(t, p.SideNodes, len(proofs[0].Aunts), "n=%d", n)
		for i, aunt := range proofs[0].Aunts {
			require.Equal(t, aunt, p.SideNodes[i][:], "n=%d aunt %d", n, i)
		}
	}
}

func TestVerifyRangeRejectsTampering(t *testing.T) {
	leaves := testLeaves(16)
	p, root, err := ProveRange(leaves, 0, 2)
	require.NoError(t, err)
	require.NotEmpty(t, p.SideNodes)

	for i := range p.SideNodes {
		tampered := p
		tampered.SideNodes = append([][32]byte(nil), p.SideNodes...)
		tampered.SideNodes[i][0] ^= 0xff
		require.Error(t, VerifyRange(root, 16, leaves[0:2], tampered))
	}

	short := p
	short.SideNodes = p.SideNodes[:len(p.SideNodes)-1]
	require.Error(t, VerifyRange(root, 16, leaves[0:2], short))

	extra := p
	extra.SideNodes = append(append([][32]byte(nil), p.SideNodes...), [32]byte{})
	require.Error(t, VerifyRange(root, 16, leaves[0:2], extra))
}

func TestProveRangeInvalid(t *testing.T) {
	leaves := testLeaves(4)
	for _, r := range [][2]int{{-1, 2}, {2, 2}, {3, 2}, {0, 5}} {
		_, _, err := ProveRange(leaves, r[0], r[1])
		require.Error(t, err)
	}
}

func TestNamespaceNodeFromBytes(t *testing.T) {
	raw := bytes.Repeat([]byte{0}, NamespaceNodeSize)
	raw[0] = 0
	raw[28] = 7
	raw[NamespaceSize+28] = 9
	raw[NamespaceNodeSize-1] = 0xaa

	node, err := NamespaceNodeFromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, byte(7), node.Min.ID[27])
	require.Equal(t, byte(9), node.Max.ID[27])
	require.Equal(t, byte(0xaa), node.Digest[31])
	require.Equal(t, raw[:NamespaceSize], node.Min.Bytes())

	_, err = NamespaceNodeFromBytes(raw[:10])
	require.Error(t, err)
}
