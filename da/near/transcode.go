package near

import (
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/proof"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

type abiPathItem struct {
	Hash      [32]byte `abi:"hash"`
	Direction uint8    `abi:"direction"`
}

type abiOutcomeProof struct {
	Proof     []abiPathItem `abi:"proof"`
	BlockHash [32]byte      `abi:"blockHash"`
	ID        [32]byte      `abi:"id"`
}

type abiInnerLite struct {
	Height          uint64   `abi:"height"`
	EpochID         [32]byte `abi:"epochId"`
	NextEpochID     [32]byte `abi:"nextEpochId"`
	PrevStateRoot   [32]byte `abi:"prevStateRoot"`
	OutcomeRoot     [32]byte `abi:"outcomeRoot"`
	Timestamp       uint64   `abi:"timestamp"`
	NextBPHash      [32]byte `abi:"nextBpHash"`
	BlockMerkleRoot [32]byte `abi:"blockMerkleRoot"`
}

type abiHeaderLite struct {
	PrevBlockHash [32]byte     `abi:"prevBlockHash"`
	InnerRestHash [32]byte     `abi:"innerRestHash"`
	InnerLite     abiInnerLite `abi:"innerLite"`
}

// BlobInclusionProof is the canonical NEAR attestation.
type BlobInclusionProof struct {
	OutcomeProof     abiOutcomeProof `abi:"outcomeProof"`
	OutcomeRootProof []abiPathItem   `abi:"outcomeRootProof"`
	BlockHeaderLite  abiHeaderLite   `abi:"blockHeaderLite"`
	BlockProof       []abiPathItem   `abi:"blockProof"`
	HeadMerkleRoot   [32]byte        `abi:"headMerkleRoot"`
}

var pathItemComponents = []abi.ArgumentMarshaling{
	{Name: "hash", Type: "bytes32"},
	{Name: "direction", Type: "uint8"},
}

var blobInclusionProofType = proof.MustTupleType([]abi.ArgumentMarshaling{
	{Name: "outcomeProof", Type: "tuple", Components: []abi.ArgumentMarshaling{
		{Name: "proof", Type: "tuple[]", Components: pathItemComponents},
		{Name: "blockHash", Type: "bytes32"},
		{Name: "id", Type: "bytes32"},
	}},
	{Name: "outcomeRootProof", Type: "tuple[]", Components: pathItemComponents},
	{Name: "blockHeaderLite", Type: "tuple", Components: []abi.ArgumentMarshaling{
		{Name: "prevBlockHash", Type: "bytes32"},
		{Name: "innerRestHash", Type: "bytes32"},
		{Name: "innerLite", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "height", Type: "uint64"},
			{Name: "epochId", Type: "bytes32"},
			{Name: "nextEpochId", Type: "bytes32"},
			{Name: "prevStateRoot", Type: "bytes32"},
			{Name: "outcomeRoot", Type: "bytes32"},
			{Name: "timestamp", Type: "uint64"},
			{Name: "nextBpHash", Type: "bytes32"},
			{Name: "blockMerkleRoot", Type: "bytes32"},
		}},
	}},
	{Name: "blockProof", Type: "tuple[]", Components: pathItemComponents},
	{Name: "headMerkleRoot", Type: "bytes32"},
})

func pathItems(path []MerklePathItem) []abiPathItem {
	out := make([]abiPathItem, len(path))
	for i, p := range path {
		out[i] = abiPathItem{Hash: p.Hash, Direction: uint8(p.Direction)}
	}
	return out
}

// Transcode verifies the proof chain up to the bridge head and ABI-encodes it.
func Transcode(raw *RawProof) ([]byte, error) {
	const op = "near transcode"
	if raw == nil || raw.Proof == nil {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: no proof", daerr.ErrMalformedProof))
	}
	if got := raw.HeadHeader.Hash(); got != raw.Head {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: head header hashes to %s, want %s", daerr.ErrIntegrity, got, raw.Head))
	}
	if raw.Proof.OutcomeProof.ID != raw.TxHash {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: proof is for %s, not %s", daerr.ErrIntegrity, raw.Proof.OutcomeProof.ID, raw.TxHash))
	}

	headRoot := raw.HeadHeader.InnerLite.BlockMerkleRoot
	if err := VerifyProof(raw.Proof, headRoot); err != nil {
		return nil, err
	}

	p := raw.Proof
	inner := p.BlockHeaderLite.InnerLite
	att := BlobInclusionProof{
		OutcomeProof: abiOutcomeProof{
			Proof:     pathItems(p.OutcomeProof.Proof),
			BlockHash: p.OutcomeProof.BlockHash,
			ID:        p.OutcomeProof.ID,
		},
		OutcomeRootProof: pathItems(p.OutcomeRootProof),
		BlockHeaderLite: abiHeaderLite{
			PrevBlockHash: p.BlockHeaderLite.PrevBlockHash,
			InnerRestHash: p.BlockHeaderLite.InnerRestHash,
			InnerLite: abiInnerLite{
				Height:          inner.Height,
				EpochID:         inner.EpochID,
				NextEpochID:     inner.NextEpochID,
				PrevStateRoot:   inner.PrevStateRoot,
				OutcomeRoot:     inner.OutcomeRoot,
				Timestamp:       uint64(inner.Timestamp),
				NextBPHash:      inner.NextBPHash,
				BlockMerkleRoot: inner.BlockMerkleRoot,
			},
		},
		BlockProof:     pathItems(p.BlockProof),
		HeadMerkleRoot: headRoot,
	}
	out, err := proof.EncodeTuple(blobInclusionProofType, att)
	if err != nil {
		return nil, daerr.Terminal(op, err)
	}
	return out, nil
}
