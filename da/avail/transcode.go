package avail

import (
	"fmt"
	"math/big"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/proof"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// merkleProofInput mirrors the bridge verifier's MerkleProofInput struct.
type merkleProofInput struct {
	DataRootProof [][32]byte `abi:"dataRootProof"`
	LeafProof     [][32]byte `abi:"leafProof"`
	RangeHash     [32]byte   `abi:"rangeHash"`
	DataRootIndex *big.Int   `abi:"dataRootIndex"`
	BlobRoot      [32]byte   `abi:"blobRoot"`
	BridgeRoot    [32]byte   `abi:"bridgeRoot"`
	Leaf          [32]byte   `abi:"leaf"`
	LeafIndex     *big.Int   `abi:"leafIndex"`
}

var merkleProofInputType = proof.MustTupleType([]abi.ArgumentMarshaling{
	{Name: "dataRootProof", Type: "bytes32[]"},
	{Name: "leafProof", Type: "bytes32[]"},
	{Name: "rangeHash", Type: "bytes32"},
	{Name: "dataRootIndex", Type: "uint256"},
	{Name: "blobRoot", Type: "bytes32"},
	{Name: "bridgeRoot", Type: "bytes32"},
	{Name: "leaf", Type: "bytes32"},
	{Name: "leafIndex", Type: "uint256"},
})

// Transcode ABI-encodes a bridge proof as MerkleProofInput.
func Transcode(p *BridgeProof) ([]byte, error) {
	if p == nil {
		return nil, daerr.Terminal("avail transcode", daerr.ErrMalformedProof)
	}
	missing := func(field string) error {
		return daerr.Terminal("avail transcode", fmt.Errorf("%w: %s is missing", daerr.ErrMalformedProof, field))
	}
	switch {
	case p.DataRootProof == nil:
		return nil, missing("dataRootProof")
	case p.LeafProof == nil:
		return nil, missing("leafProof")
	case p.RangeHash == nil:
		return nil, missing("rangeHash")
	case p.DataRootIndex == nil:
		return nil, missing("dataRootIndex")
	case p.BlobRoot == nil:
		return nil, missing("blobRoot")
	case p.BridgeRoot == nil:
		return nil, missing("bridgeRoot")
	case p.Leaf == nil:
		return nil, missing("leaf")
	case p.LeafIndex == nil:
		return nil, missing("leafIndex")
	}

	in := merkleProofInput{
		DataRootProof: hashes(p.DataRootProof),
		LeafProof:     hashes(p.LeafProof),
		RangeHash:     *p.RangeHash,
		DataRootIndex: new(big.Int).Set(&p.DataRootIndex.Int),
		BlobRoot:      *p.BlobRoot,
		BridgeRoot:    *p.BridgeRoot,
		Leaf:          *p.Leaf,
		LeafIndex:     new(big.Int).Set(&p.LeafIndex.Int),
	}
	out, err := proof.EncodeTuple(merkleProofInputType, in)
	if err != nil {
		return nil, daerr.Terminal("avail transcode", err)
	}
	return out, nil
}

func hashes(in []common.Hash) [][32]byte {
	out := make([][32]byte, len(in))
	for i, h := range in {
		out[i] = h
	}
	return out
}
